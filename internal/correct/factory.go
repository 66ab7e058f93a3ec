package correct

import (
	"log/slog"
	"strings"

	"autosub/internal/config"
	"autosub/internal/logging"
	"autosub/internal/services/llm"
)

// FromConfig builds the corrector described by cfg. apiKey is the resolved
// credential; when correction is enabled but no key is available the
// Disabled corrector is returned and a warning is logged.
func FromConfig(cfg *config.Config, apiKey string, logger *slog.Logger, opts ...llm.Option) (Corrector, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg == nil || !cfg.Correction.Enabled {
		return NewDisabled("correction disabled in configuration", logger), nil
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		logging.WarnWithContext(logger, "no API key available; subtitles will not be corrected", "correction_disabled",
			logging.String(logging.FieldErrorHint, "run `autosub auth set` or export GEMINI_API_KEY"),
			logging.String(logging.FieldImpact, "raw transcription is written"),
		)
		return NewDisabled("no API key configured", logger), nil
	}

	llmCfg := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         apiKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	}, opts...)

	return NewConfigured(client, Config{
		Prompt:      LoadPrompt(cfg.Correction.PromptPath, logger),
		Glossary:    LoadGlossary(cfg.Correction.GlossaryPath, logger),
		BatchSize:   cfg.Correction.BatchSize,
		MaxAttempts: cfg.Correction.MaxAttempts,
		RetryDelay:  cfg.RetryDelay(),
	}, logger)
}
