package config

const (
	defaultConfigPath         = "~/.config/scribe/config.toml"
	defaultStorageDir         = "~/.local/share/scribe/transcripts"
	defaultWorkDir            = "~/.cache/scribe/work"
	defaultStateDir           = "~/.local/share/scribe"
	defaultLogDir             = "~/.local/share/scribe/logs"
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultYtDlpBinary        = "yt-dlp"
	defaultPrimaryLanguage    = "en"
	defaultCaptionRPS         = 2.0
	defaultCaptionMaxBytes    = 16 << 20
	defaultCaptionTimeout     = 30
	defaultDownloadAttempts   = 3
	defaultDownloadRetryDelay = 2
	defaultDownloadMinBytes   = 1000
	defaultDownloadFormat     = "bestaudio/best"
	defaultAudioFormat        = "mp3"
	defaultAudioQuality       = "192K"
	defaultEngineModel        = "large-v3"
	defaultVADMethod          = "silero"
	defaultChunkSeconds       = 600
	defaultEstimateMultiplier = 2.0
	defaultPollIntervalMillis = 1500
	defaultBridgeCapacity     = 64
	defaultSendTimeoutMillis  = 50
	defaultLogBucketPercent   = 5
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

var defaultSecondaryLanguages = []string{"zh-Hant", "zh-Hans", "zh-TW", "zh-HK", "zh-CN", "zh"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir:    defaultStorageDir,
			WorkDir:       defaultWorkDir,
			StateDir:      defaultStateDir,
			LogDir:        defaultLogDir,
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			YtDlpBinary:   defaultYtDlpBinary,
		},
		Captions: Captions{
			Enabled:            true,
			PrimaryLanguage:    defaultPrimaryLanguage,
			SecondaryLanguages: append([]string(nil), defaultSecondaryLanguages...),
			RequestsPerSecond:  defaultCaptionRPS,
			MaxBytes:           defaultCaptionMaxBytes,
			TimeoutSeconds:     defaultCaptionTimeout,
		},
		Download: Download{
			Attempts:          defaultDownloadAttempts,
			RetryDelaySeconds: defaultDownloadRetryDelay,
			MinBytes:          defaultDownloadMinBytes,
			Format:            defaultDownloadFormat,
			AudioFormat:       defaultAudioFormat,
			AudioQuality:      defaultAudioQuality,
		},
		Engine: Engine{
			Model:              defaultEngineModel,
			VADMethod:          defaultVADMethod,
			ChunkSeconds:       defaultChunkSeconds,
			EstimateMultiplier: defaultEstimateMultiplier,
		},
		Progress: Progress{
			PollIntervalMillis: defaultPollIntervalMillis,
			BridgeCapacity:     defaultBridgeCapacity,
			SendTimeoutMillis:  defaultSendTimeoutMillis,
			LogBucketPercent:   defaultLogBucketPercent,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeout,
			OnSuccess:             true,
			OnFailure:             true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
