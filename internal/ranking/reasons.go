package ranking

import "strings"

// reasonSeparator joins reason phrases in the display string.
const reasonSeparator = ", "

// ComposeReason turns fired contributions into reason tags and a display string.
// Tags keep firing order with repeated phrases collapsed; the reason keeps the first
// maxTags tags, or fallback when nothing fired.
func ComposeReason(contribs []Contribution, maxTags int, fallback string) ([]string, string) {
	var tags []string
	seen := make(map[string]bool)
	for _, c := range contribs {
		if c.Phrase == "" || seen[c.Phrase] {
			continue
		}
		seen[c.Phrase] = true
		tags = append(tags, c.Phrase)
	}
	if len(tags) == 0 || maxTags <= 0 {
		return tags, fallback
	}
	n := maxTags
	if n > len(tags) {
		n = len(tags)
	}
	return tags, strings.Join(tags[:n], reasonSeparator)
}
