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

// Paths contains directory configuration.
type Paths struct {
	ScratchDir string `toml:"scratch_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	DataDir    string `toml:"data_dir"`
}

// Media contains configuration for input validation and audio extraction.
type Media struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
	AudioQuality int    `toml:"audio_quality"`
	MaxInputGiB  int    `toml:"max_input_gib"`
}

// Transcription contains configuration for the speech recognizer.
type Transcription struct {
	Model        string `toml:"model"`
	Device       string `toml:"device"`
	ComputeType  string `toml:"compute_type"`
	Language     string `toml:"language"`
	MinSilenceMS int    `toml:"min_silence_ms"`
	Command      string `toml:"command"`
	ModelDir     string `toml:"model_dir"`
}

// Correction contains configuration for LLM subtitle correction.
type Correction struct {
	Enabled           bool   `toml:"enabled"`
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	Model             string `toml:"model"`
	Referer           string `toml:"referer"`
	Title             string `toml:"title"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	BatchSize         int    `toml:"batch_size"`
	MaxAttempts       int    `toml:"max_attempts"`
	RetryDelaySeconds int    `toml:"retry_delay_seconds"`
	PromptPath        string `toml:"prompt_path"`
	GlossaryPath      string `toml:"glossary_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Telemetry contains OpenTelemetry export settings.
type Telemetry struct {
	Enabled      bool   `toml:"enabled"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	OTLPInsecure bool   `toml:"otlp_insecure"`
	Stdout       bool   `toml:"stdout"`
	ServiceName  string `toml:"service_name"`
}

// Config encapsulates all configuration values for autosub.
//
// Configuration sections by subsystem:
//   - Paths: scratch, output, log and data directories
//   - Media: ffmpeg binary override and extraction quality
//   - Transcription: faster-whisper model, device and VAD settings
//   - Correction: LLM endpoint, batching and retry policy
//   - Logging: log format and level
//   - Telemetry: OpenTelemetry trace and metric export
type Config struct {
	Paths         Paths         `toml:"paths"`
	Media         Media         `toml:"media"`
	Transcription Transcription `toml:"transcription"`
	Correction    Correction    `toml:"correction"`
	Logging       Logging       `toml:"logging"`
	Telemetry     Telemetry     `toml:"telemetry"`
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

	projectPath, err := filepath.Abs("autosub.toml")
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

// EnsureDirectories creates the scratch, output, log and data directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.DataDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// CredentialsPath returns the location of the stored credential file.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.Paths.DataDir, "credentials.toml")
}

// MaxInputBytes converts the configured upload limit to bytes. Zero means unlimited.
func (c *Config) MaxInputBytes() int64 {
	if c.Media.MaxInputGiB <= 0 {
		return 0
	}
	return int64(c.Media.MaxInputGiB) << 30
}

// RetryDelay returns the fixed pause between correction attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Correction.RetryDelaySeconds) * time.Second
}

// MinSilence returns the VAD minimum silence duration.
func (c *Config) MinSilence() time.Duration {
	return time.Duration(c.Transcription.MinSilenceMS) * time.Millisecond
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
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
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

// LLMConfig contains the connection settings for the correction endpoint.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the correction endpoint connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.Correction.APIKey),
		BaseURL:        strings.TrimSpace(c.Correction.BaseURL),
		Model:          strings.TrimSpace(c.Correction.Model),
		Referer:        strings.TrimSpace(c.Correction.Referer),
		Title:          strings.TrimSpace(c.Correction.Title),
		TimeoutSeconds: c.Correction.TimeoutSeconds,
	}
}
