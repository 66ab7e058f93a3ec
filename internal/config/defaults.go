package config

const (
	defaultConfigPath        = "~/.config/autosub/config.toml"
	defaultScratchDir        = "~/.cache/autosub/scratch"
	defaultOutputDir         = "~/Videos/subtitles"
	defaultLogDir            = "~/.local/share/autosub/logs"
	defaultDataDir           = "~/.local/share/autosub"
	defaultAudioQuality      = 2
	defaultMaxInputGiB       = 4
	defaultWhisperModel      = "large-v3"
	defaultWhisperDevice     = "auto"
	defaultWhisperCompute    = "default"
	defaultLanguage          = "ko"
	defaultMinSilenceMS      = 500
	defaultRecognizerCommand = "python3"
	defaultModelDir          = "~/.local/share/autosub/models"
	defaultLLMBaseURL        = "https://generativelanguage.googleapis.com/v1beta/openai/chat/completions"
	defaultLLMModel          = "gemini-2.5-flash"
	defaultLLMReferer        = "https://github.com/autosub/autosub"
	defaultLLMTitle          = "autosub"
	defaultLLMTimeoutSeconds = 120
	defaultBatchSize         = 30
	defaultMaxAttempts       = 3
	defaultRetryDelaySeconds = 2
	defaultGlossaryPath      = "~/.config/autosub/glossary.json"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultServiceName       = "autosub"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir: defaultScratchDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			DataDir:    defaultDataDir,
		},
		Media: Media{
			AudioQuality: defaultAudioQuality,
			MaxInputGiB:  defaultMaxInputGiB,
		},
		Transcription: Transcription{
			Model:        defaultWhisperModel,
			Device:       defaultWhisperDevice,
			ComputeType:  defaultWhisperCompute,
			Language:     defaultLanguage,
			MinSilenceMS: defaultMinSilenceMS,
			Command:      defaultRecognizerCommand,
			ModelDir:     defaultModelDir,
		},
		Correction: Correction{
			Enabled:           true,
			BaseURL:           defaultLLMBaseURL,
			Model:             defaultLLMModel,
			Referer:           defaultLLMReferer,
			Title:             defaultLLMTitle,
			TimeoutSeconds:    defaultLLMTimeoutSeconds,
			BatchSize:         defaultBatchSize,
			MaxAttempts:       defaultMaxAttempts,
			RetryDelaySeconds: defaultRetryDelaySeconds,
			GlossaryPath:      defaultGlossaryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Telemetry: Telemetry{
			ServiceName: defaultServiceName,
		},
	}
}
