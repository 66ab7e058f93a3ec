package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Normalize parses a BCP 47 tag or ISO 639 code ("ko", "kor", "ko-KR",
// "KO") and returns the two-letter base language understood by the
// recognizer. Codes without a two-letter form are returned in their
// canonical three-letter form.
func Normalize(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("language code is empty")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("parse language %q: %w", code, err)
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", fmt.Errorf("unknown language %q", code)
	}
	return base.String(), nil
}

// DisplayName returns the English name for code, falling back to the
// upper-cased code when the name is unknown.
func DisplayName(code string) string {
	normalized, err := Normalize(code)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	if name := display.English.Languages().Name(language.Make(normalized)); name != "" {
		return name
	}
	return strings.ToUpper(normalized)
}
