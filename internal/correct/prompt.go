package correct

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"autosub/internal/logging"
)

// DefaultPrompt is used when no prompt file is available.
const DefaultPrompt = "You are a subtitle correction expert. Correct the following subtitles."

// LoadPrompt reads the system prompt from path. A missing or empty file
// yields DefaultPrompt with a warning.
func LoadPrompt(path string, logger *slog.Logger) string {
	if logger == nil {
		logger = logging.NewNop()
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultPrompt
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("prompt file not found; using default prompt", logging.String("path", path))
		} else {
			logger.Warn("prompt file unreadable; using default prompt", logging.String("path", path), logging.Error(err))
		}
		return DefaultPrompt
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		logger.Warn("prompt file is empty; using default prompt", logging.String("path", path))
		return DefaultPrompt
	}
	return prompt
}

// LoadGlossary reads a term -> canonical form map from a JSON or YAML file,
// chosen by extension. Missing or malformed files yield an empty glossary.
func LoadGlossary(path string, logger *slog.Logger) map[string]string {
	if logger == nil {
		logger = logging.NewNop()
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return map[string]string{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("glossary file not found", logging.String("path", path))
		} else {
			logger.Warn("glossary file unreadable", logging.String("path", path), logging.Error(err))
		}
		return map[string]string{}
	}
	glossary, err := ParseGlossary(data, filepath.Ext(path))
	if err != nil {
		logger.Error("failed to parse glossary", logging.String("path", path), logging.Error(err))
		return map[string]string{}
	}
	logger.Debug("glossary loaded", logging.String("path", path), logging.Int("terms", len(glossary)))
	return glossary
}

// ParseGlossary decodes glossary data. ext selects YAML for ".yaml" and
// ".yml"; anything else is decoded as JSON.
func ParseGlossary(data []byte, ext string) (map[string]string, error) {
	glossary := map[string]string{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return glossary, nil
	}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &glossary); err != nil {
			return nil, fmt.Errorf("decode yaml glossary: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &glossary); err != nil {
			return nil, fmt.Errorf("decode json glossary: %w", err)
		}
	}
	if glossary == nil {
		glossary = map[string]string{}
	}
	return glossary, nil
}
