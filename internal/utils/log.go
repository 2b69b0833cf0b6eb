package utils

import "strings"

// TruncateForLog collapses whitespace runs so previews stay on one log line,
// then cuts the result to limit runes and marks the cut with "...".
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
