package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCaptions()
	c.normalizeDownload()
	c.normalizeEngine()
	c.normalizeProgress()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SCRIBE_STORAGE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.StorageDir = strings.TrimSpace(value)
	}
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.storage_dir", &c.Paths.StorageDir, defaultStorageDir},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	c.Paths.FFmpegBinary = trimOr(c.Paths.FFmpegBinary, defaultFFmpegBinary)
	c.Paths.FFprobeBinary = trimOr(c.Paths.FFprobeBinary, defaultFFprobeBinary)
	c.Paths.YtDlpBinary = trimOr(c.Paths.YtDlpBinary, defaultYtDlpBinary)
	return nil
}

func (c *Config) normalizeCaptions() {
	c.Captions.PrimaryLanguage = trimOr(c.Captions.PrimaryLanguage, defaultPrimaryLanguage)
	langs := make([]string, 0, len(c.Captions.SecondaryLanguages))
	seen := make(map[string]struct{}, len(c.Captions.SecondaryLanguages))
	for _, lang := range c.Captions.SecondaryLanguages {
		trimmed := strings.TrimSpace(lang)
		key := strings.ToLower(trimmed)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		langs = append(langs, trimmed)
	}
	c.Captions.SecondaryLanguages = langs
	if c.Captions.RequestsPerSecond <= 0 {
		c.Captions.RequestsPerSecond = defaultCaptionRPS
	}
	if c.Captions.MaxBytes <= 0 {
		c.Captions.MaxBytes = defaultCaptionMaxBytes
	}
	if c.Captions.TimeoutSeconds <= 0 {
		c.Captions.TimeoutSeconds = defaultCaptionTimeout
	}
}

func (c *Config) normalizeDownload() {
	c.Download.Format = trimOr(c.Download.Format, defaultDownloadFormat)
	c.Download.AudioFormat = strings.ToLower(trimOr(c.Download.AudioFormat, defaultAudioFormat))
	c.Download.AudioQuality = trimOr(c.Download.AudioQuality, defaultAudioQuality)
}

func (c *Config) normalizeEngine() {
	c.Engine.Model = trimOr(c.Engine.Model, defaultEngineModel)
	c.Engine.VADMethod = strings.ToLower(trimOr(c.Engine.VADMethod, defaultVADMethod))
	c.Engine.Language = strings.ToLower(strings.TrimSpace(c.Engine.Language))
	c.Engine.HFToken = strings.TrimSpace(c.Engine.HFToken)
	if c.Engine.HFToken == "" {
		for _, key := range []string{"SCRIBE_HF_TOKEN", "HUGGING_FACE_HUB_TOKEN", "HF_TOKEN"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.Engine.HFToken = strings.TrimSpace(value)
				break
			}
		}
	}
	if c.Engine.ChunkSeconds == 0 {
		c.Engine.ChunkSeconds = defaultChunkSeconds
	}
	if c.Engine.EstimateMultiplier == 0 {
		c.Engine.EstimateMultiplier = defaultEstimateMultiplier
	}
}

func (c *Config) normalizeProgress() {
	if c.Progress.PollIntervalMillis == 0 {
		c.Progress.PollIntervalMillis = defaultPollIntervalMillis
	}
	if c.Progress.BridgeCapacity == 0 {
		c.Progress.BridgeCapacity = defaultBridgeCapacity
	}
	if c.Progress.SendTimeoutMillis == 0 {
		c.Progress.SendTimeoutMillis = defaultSendTimeoutMillis
	}
	if c.Progress.LogBucketPercent <= 0 {
		c.Progress.LogBucketPercent = defaultLogBucketPercent
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if value, ok := os.LookupEnv("SCRIBE_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(value)
	}
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
