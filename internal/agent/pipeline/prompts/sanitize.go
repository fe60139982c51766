package prompts

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const truncatedMarker = "\n[... truncated ...]"

// Sanitize makes text safe to embed in a JSON request body. Invalid UTF-8
// (including encoded lone surrogates) and control characters other than
// newline, carriage return and tab are dropped.
func Sanitize(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return r
		case unicode.IsControl(r):
			return -1
		case r >= 0xD800 && r <= 0xDFFF:
			return -1
		}
		return r
	}, s)
}

// TruncateByRunes keeps at most maxRunes runes of s and appends a marker when
// anything was cut. maxRunes <= 0 disables truncation.
func TruncateByRunes(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + truncatedMarker
		}
		n++
	}
	return s
}
