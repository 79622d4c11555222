package utils

import "strings"

// Truncate shortens s to maxLen runes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// Collapse replaces every run of whitespace with a single space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
