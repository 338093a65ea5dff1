package utils

import (
	"strings"
	"unicode"
)

// SanitizeFilenamePart lowercases s and collapses every run of characters
// that are not ASCII letters or digits into a single underscore. Leading and
// trailing underscores are trimmed; an empty result falls back to fallback.
func SanitizeFilenamePart(s, fallback string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}

// Truncate shortens s to at most n runes
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
