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
	if err := c.normalizeMedia(); err != nil {
		return err
	}
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	if err := c.normalizeCorrection(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeTelemetry()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMedia() error {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		if value, ok := os.LookupEnv("AUTOSUB_FFMPEG"); ok {
			c.Media.FFmpegBinary = strings.TrimSpace(value)
		}
	}
	if strings.ContainsRune(c.Media.FFmpegBinary, os.PathSeparator) || strings.HasPrefix(c.Media.FFmpegBinary, "~") {
		expanded, err := expandPath(c.Media.FFmpegBinary)
		if err != nil {
			return fmt.Errorf("media.ffmpeg_binary: %w", err)
		}
		c.Media.FFmpegBinary = expanded
	}
	if c.Media.MaxInputGiB < 0 {
		c.Media.MaxInputGiB = 0
	}
	return nil
}

func (c *Config) normalizeTranscription() error {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperModel
	}
	c.Transcription.Device = strings.ToLower(strings.TrimSpace(c.Transcription.Device))
	if c.Transcription.Device == "" {
		c.Transcription.Device = defaultWhisperDevice
	}
	c.Transcription.ComputeType = strings.ToLower(strings.TrimSpace(c.Transcription.ComputeType))
	if c.Transcription.ComputeType == "" {
		c.Transcription.ComputeType = defaultWhisperCompute
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	if c.Transcription.Language == "" {
		c.Transcription.Language = defaultLanguage
	}
	if c.Transcription.MinSilenceMS == 0 {
		c.Transcription.MinSilenceMS = defaultMinSilenceMS
	}
	c.Transcription.Command = strings.TrimSpace(c.Transcription.Command)
	if c.Transcription.Command == "" {
		c.Transcription.Command = defaultRecognizerCommand
	}
	var err error
	if strings.TrimSpace(c.Transcription.ModelDir) == "" {
		c.Transcription.ModelDir = defaultModelDir
	}
	if c.Transcription.ModelDir, err = expandPath(c.Transcription.ModelDir); err != nil {
		return fmt.Errorf("transcription.model_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCorrection() error {
	c.Correction.APIKey = strings.TrimSpace(c.Correction.APIKey)
	if c.Correction.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Correction.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("AUTOSUB_API_KEY"); ok {
			c.Correction.APIKey = strings.TrimSpace(value)
		}
	}
	c.Correction.BaseURL = strings.TrimSpace(c.Correction.BaseURL)
	if c.Correction.BaseURL == "" {
		c.Correction.BaseURL = defaultLLMBaseURL
	}
	c.Correction.Model = strings.TrimSpace(c.Correction.Model)
	if c.Correction.Model == "" {
		c.Correction.Model = defaultLLMModel
	}
	c.Correction.Referer = strings.TrimSpace(c.Correction.Referer)
	c.Correction.Title = strings.TrimSpace(c.Correction.Title)
	if c.Correction.TimeoutSeconds == 0 {
		c.Correction.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.Correction.BatchSize == 0 {
		c.Correction.BatchSize = defaultBatchSize
	}
	if c.Correction.MaxAttempts == 0 {
		c.Correction.MaxAttempts = defaultMaxAttempts
	}
	var err error
	if c.Correction.PromptPath, err = expandPath(strings.TrimSpace(c.Correction.PromptPath)); err != nil {
		return fmt.Errorf("correction.prompt_path: %w", err)
	}
	if c.Correction.GlossaryPath, err = expandPath(strings.TrimSpace(c.Correction.GlossaryPath)); err != nil {
		return fmt.Errorf("correction.glossary_path: %w", err)
	}
	return nil
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

func (c *Config) normalizeTelemetry() {
	c.Telemetry.OTLPEndpoint = strings.TrimSpace(c.Telemetry.OTLPEndpoint)
	if c.Telemetry.OTLPEndpoint == "" {
		if value, ok := os.LookupEnv("OTEL_EXPORTER_OTLP_ENDPOINT"); ok {
			c.Telemetry.OTLPEndpoint = strings.TrimSpace(value)
		}
	}
	c.Telemetry.ServiceName = strings.TrimSpace(c.Telemetry.ServiceName)
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = defaultServiceName
	}
}
