// Package strutil provides string helpers shared by the ai packages.
package strutil

import (
	"strings"
	"unicode/utf8"
)

// Truncate cuts s to at most maxLen runes, appending "..." when something was cut.
// Rune-level so Hangul and other multi-byte text never splits mid-character.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}

// IsBlank reports whether s is empty after trimming whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
