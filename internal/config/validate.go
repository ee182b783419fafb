package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateProgress(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateCaptions() error {
	if _, err := language.Parse(c.Captions.PrimaryLanguage); err != nil {
		return fmt.Errorf("captions.primary_language %q is not a valid language tag", c.Captions.PrimaryLanguage)
	}
	for _, lang := range c.Captions.SecondaryLanguages {
		if _, err := language.Parse(lang); err != nil {
			return fmt.Errorf("captions.secondary_languages entry %q is not a valid language tag", lang)
		}
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.Attempts < 1 {
		return errors.New("download.attempts must be >= 1")
	}
	if c.Download.RetryDelaySeconds < 0 {
		return errors.New("download.retry_delay_seconds must be >= 0")
	}
	if c.Download.MinBytes < 0 {
		return errors.New("download.min_bytes must be >= 0")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.ChunkSeconds < 0 {
		return errors.New("engine.chunk_seconds must be positive")
	}
	if c.Engine.EstimateMultiplier < 1 {
		return errors.New("engine.estimate_multiplier must be >= 1")
	}
	switch c.Engine.VADMethod {
	case "silero":
	case "pyannote":
		if c.Engine.HFToken == "" {
			return errors.New("engine.hf_token must be set when engine.vad_method is pyannote (or set SCRIBE_HF_TOKEN)")
		}
	default:
		return fmt.Errorf("engine.vad_method: unsupported value %q", c.Engine.VADMethod)
	}
	if c.Engine.Language != "" {
		if _, err := language.Parse(c.Engine.Language); err != nil {
			return fmt.Errorf("engine.language %q is not a valid language tag", c.Engine.Language)
		}
	}
	return nil
}

func (c *Config) validateProgress() error {
	return ensurePositiveMap(map[string]int{
		"progress.poll_interval_ms": c.Progress.PollIntervalMillis,
		"progress.bridge_capacity":  c.Progress.BridgeCapacity,
		"progress.send_timeout_ms":  c.Progress.SendTimeoutMillis,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
