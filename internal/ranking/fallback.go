package ranking

import "strings"

// genericSuggestions are shown when a search finds nothing and no themed list applies.
var genericSuggestions = []string{
	"Try searching for 'wireless headphones'",
	"Look for 'running shoes under $100'",
	"Search 'kitchen appliances on sale'",
	"Find 'yoga equipment for beginners'",
	"Browse 'electronics with high ratings'",
}

// themedSuggestions are checked in order; the first theme whose trigger occurs in the
// query wins.
var themedSuggestions = []struct {
	triggers    []string
	suggestions []string
}{
	{[]string{"shoe"}, []string{"running shoes", "athletic footwear", "comfortable shoes"}},
	{[]string{"music", "audio"}, []string{"headphones", "speakers", "audio equipment"}},
	{[]string{"fitness", "workout"}, []string{"yoga mats", "fitness equipment", "sports gear"}},
}

// maxFallbackSuggestions caps the generic list.
const maxFallbackSuggestions = 3

// FallbackSuggestions returns the hand-authored phrases shown instead of an empty
// search result.
func FallbackSuggestions(query string) []string {
	lower := strings.ToLower(query)
	for _, theme := range themedSuggestions {
		for _, trigger := range theme.triggers {
			if strings.Contains(lower, trigger) {
				return append([]string(nil), theme.suggestions...)
			}
		}
	}
	return append([]string(nil), genericSuggestions[:maxFallbackSuggestions]...)
}
