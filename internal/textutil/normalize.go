package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText trims surrounding whitespace and converts s to Unicode NFC.
// Recognizers frequently emit decomposed Hangul jamo; NFC keeps SRT output
// compact and comparable.
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// CueText normalizes subtitle text for a single SRT cue. Every line is
// trimmed and blank lines are dropped, since a blank line ends a cue.
func CueText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = NormalizeText(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
