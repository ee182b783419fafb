package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and external binary configuration.
type Paths struct {
	StorageDir    string `toml:"storage_dir"`
	WorkDir       string `toml:"work_dir"`
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	YtDlpBinary   string `toml:"ytdlp_binary"`
}

// Captions controls provider caption lookup.
type Captions struct {
	Enabled            bool     `toml:"enabled"`
	PrimaryLanguage    string   `toml:"primary_language"`
	SecondaryLanguages []string `toml:"secondary_languages"`
	RequestsPerSecond  float64  `toml:"requests_per_second"`
	MaxBytes           int64    `toml:"max_bytes"`
	TimeoutSeconds     int      `toml:"timeout_seconds"`
}

// Download controls remote audio retrieval.
type Download struct {
	Attempts          int    `toml:"attempts"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
	MinBytes          int64  `toml:"min_bytes"`
	Format            string `toml:"format"`
	AudioFormat       string `toml:"audio_format"`
	AudioQuality      string `toml:"audio_quality"`
}

// Engine contains speech recognition settings.
type Engine struct {
	Model              string  `toml:"model"`
	CUDAEnabled        bool    `toml:"cuda_enabled"`
	VADMethod          string  `toml:"vad_method"`
	HFToken            string  `toml:"hf_token"`
	Language           string  `toml:"language"`
	ChunkSeconds       int     `toml:"chunk_seconds"`
	EstimateMultiplier float64 `toml:"estimate_multiplier"`
}

// Progress contains progress relay tuning.
type Progress struct {
	PollIntervalMillis int     `toml:"poll_interval_ms"`
	BridgeCapacity     int     `toml:"bridge_capacity"`
	SendTimeoutMillis  int     `toml:"send_timeout_ms"`
	LogBucketPercent   float64 `toml:"log_bucket_percent"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications configures ntfy alerts for finished runs.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	OnSuccess             bool   `toml:"on_success"`
	OnFailure             bool   `toml:"on_failure"`
}

// Config encapsulates all configuration values for scribe.
//
// Configuration sections by subsystem:
//   - Paths: transcript storage, scratch space, state, and tool binaries
//   - Captions: provider caption lookup and language preference
//   - Download: retry policy and yt-dlp format selection
//   - Engine: WhisperX model, device, and chunking
//   - Progress: polling cadence and relay buffering
//   - Notifications: ntfy alerts when runs finish
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Captions      Captions      `toml:"captions"`
	Download      Download      `toml:"download"`
	Engine        Engine        `toml:"engine"`
	Progress      Progress      `toml:"progress"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the storage, scratch, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StorageDir, c.Paths.WorkDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the SQLite run ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the cross-process run lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "scribe.lock")
}

// RetryDelay returns the fixed delay between download attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Download.RetryDelaySeconds) * time.Second
}

// PollInterval returns the progress ticker period used while a worker runs.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Progress.PollIntervalMillis) * time.Millisecond
}

// SendTimeout returns how long the progress bridge waits on a full buffer.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Progress.SendTimeoutMillis) * time.Millisecond
}

// CaptionTimeout returns the HTTP timeout for caption track downloads.
func (c *Config) CaptionTimeout() time.Duration {
	return time.Duration(c.Captions.TimeoutSeconds) * time.Second
}

// NotifyTimeout returns the HTTP timeout for ntfy requests.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// LogPath returns the file the logger appends to, or "" without a log dir.
func (c *Config) LogPath() string {
	if c.Paths.LogDir == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "scribe.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
