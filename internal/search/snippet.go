package search

import "strings"

// Snippet shortens text to at most maxLen runes plus an ellipsis, cutting at the last
// space when there is one. maxLen <= 0 returns text unchanged.
func Snippet(text string, maxLen int) string {
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return text
	}
	cut := string(runes[:maxLen])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}
