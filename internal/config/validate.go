package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var validDevices = map[string]struct{}{"auto": {}, "cpu": {}, "cuda": {}}

// Validate ensures the configuration is usable. A missing API key is not an
// error: correction is skipped at run time instead.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateCorrection(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.AudioQuality < 0 || c.Media.AudioQuality > 9 {
		return errors.New("media.audio_quality must be between 0 and 9")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if _, ok := validDevices[c.Transcription.Device]; !ok {
		return fmt.Errorf("transcription.device must be one of auto, cpu, cuda (got %q)", c.Transcription.Device)
	}
	if c.Transcription.MinSilenceMS < 0 {
		return errors.New("transcription.min_silence_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateCorrection() error {
	if err := ensurePositiveMap(map[string]int{
		"correction.batch_size":      c.Correction.BatchSize,
		"correction.max_attempts":    c.Correction.MaxAttempts,
		"correction.timeout_seconds": c.Correction.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Correction.RetryDelaySeconds < 0 {
		return errors.New("correction.retry_delay_seconds must be >= 0")
	}
	parsed, err := url.Parse(c.Correction.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("correction.base_url must be an absolute URL (got %q)", c.Correction.BaseURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
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
