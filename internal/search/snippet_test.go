package search

import "testing"

func TestSnippet(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   string
	}{
		{"short", "Noise cancelling", 50, "Noise cancelling"},
		{"no limit", "Noise cancelling", 0, "Noise cancelling"},
		{"word boundary", "Premium noise cancelling headphones", 20, "Premium noise..."},
		{"trailing punctuation", "Brews, grinds, and steams", 8, "Brews..."},
		{"single long word", "Supercalifragilistic", 5, "Super..."},
		{"runes", "café crème brûlée", 10, "café..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Snippet(tt.text, tt.maxLen); got != tt.want {
				t.Errorf("Snippet(%q, %d) = %q, want %q", tt.text, tt.maxLen, got, tt.want)
			}
		})
	}
}
