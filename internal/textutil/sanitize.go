package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes a video stem safe to reuse in a subtitle filename.
// Path separators, colons and asterisks become dashes; quotes, wildcards,
// angle brackets, pipes and control characters are dropped. Whitespace runs
// collapse to one space.
func SanitizeFileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*':
			return '-'
		case strings.ContainsRune(`?"<>|`, r), unicode.IsControl(r) && r != '\t':
			return -1
		}
		return r
	}, name)
	return strings.Join(strings.Fields(cleaned), " ")
}
