package credentials

import (
	"errors"
	"strings"
)

// Where an API key was found.
const (
	SourceConfig = "config"
	SourceStore  = "credential store"
	SourceNone   = "none"
)

// Getter reads a named secret.
type Getter interface {
	Get(service, name string) (string, error)
}

// ResolveAPIKey picks the correction API key. configured is the value from
// the config file or its environment fallback and wins when set; otherwise
// the store is consulted. Store read failures other than ErrNotFound are
// returned alongside SourceNone.
func ResolveAPIKey(configured string, store Getter) (string, string, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return key, SourceConfig, nil
	}
	if store == nil {
		return "", SourceNone, nil
	}
	key, err := store.Get(Service, APIKeyKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", SourceNone, nil
		}
		return "", SourceNone, err
	}
	return key, SourceStore, nil
}

// Mask renders a secret for display, keeping only the last four characters.
func Mask(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ""
	}
	runes := []rune(secret)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
