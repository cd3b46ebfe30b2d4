package ranking

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// IntentRule is one row of the intent table: a pattern and the extractor that turns
// its match into an Intent. Extract receives the submatches of the first match.
type IntentRule struct {
	Kind    IntentKind
	Pattern *regexp.Regexp
	Extract func(kind IntentKind, match []string) (Intent, bool)
}

// minWordLen is the shortest query word used for keyword matching, exclusive.
const minWordLen = 2

// QueryAnalyzer runs the intent table and tokenizes queries.
type QueryAnalyzer struct {
	rules []IntentRule
}

// NewQueryAnalyzer creates an analyzer over the given rules, or the default table
// when none are given.
func NewQueryAnalyzer(rules ...IntentRule) *QueryAnalyzer {
	if len(rules) == 0 {
		rules = DefaultIntentRules()
	}
	return &QueryAnalyzer{rules: rules}
}

// Analyze parses a query string. Empty input yields an empty AnalyzedQuery.
func (qa *QueryAnalyzer) Analyze(query string) *AnalyzedQuery {
	result := &AnalyzedQuery{
		Original: query,
		Lower:    strings.ToLower(strings.TrimSpace(query)),
		Words:    []string{},
	}
	if result.Lower == "" {
		return result
	}

	result.Words = qa.extractWords(result.Lower)

	for _, rule := range qa.rules {
		if rule.Pattern == nil || rule.Extract == nil {
			continue
		}
		match := rule.Pattern.FindStringSubmatch(result.Lower)
		if match == nil {
			continue
		}
		if intent, ok := rule.Extract(rule.Kind, match); ok {
			result.Intents = append(result.Intents, intent)
		}
	}

	return result
}

// extractWords splits, normalizes, filters short words, and de-duplicates.
func (qa *QueryAnalyzer) extractWords(lower string) []string {
	seen := make(map[string]bool)
	words := make([]string, 0)
	for _, field := range strings.Fields(lower) {
		word := normalizeToken(field)
		if len([]rune(word)) <= minWordLen || seen[word] {
			continue
		}
		seen[word] = true
		words = append(words, word)
	}
	return words
}

// normalizeToken lowercases and strips punctuation from the edges of a token,
// keeping internal hyphens and underscores.
func normalizeToken(token string) string {
	token = strings.ToLower(token)
	return strings.TrimFunc(token, func(r rune) bool {
		return unicode.IsPunct(r) && r != '-' && r != '_'
	})
}

// termExtractor returns the first submatch (or the whole match) as the intent term.
func termExtractor(kind IntentKind, match []string) (Intent, bool) {
	term := match[0]
	if len(match) > 1 && match[1] != "" {
		term = match[1]
	}
	return Intent{Kind: kind, Term: strings.ToLower(term)}, true
}

// amountExtractor parses the first submatch as a price bound.
func amountExtractor(kind IntentKind, match []string) (Intent, bool) {
	if len(match) < 2 {
		return Intent{}, false
	}
	amount, err := strconv.ParseFloat(match[1], 64)
	if err != nil || amount < 0 {
		return Intent{}, false
	}
	return Intent{Kind: kind, Term: match[0], Amount: amount}, true
}

// synonymExtractor returns an extractor that attaches the concept's expansion words.
func synonymExtractor(related []string) func(IntentKind, []string) (Intent, bool) {
	return func(kind IntentKind, match []string) (Intent, bool) {
		return Intent{Kind: kind, Term: match[0], Related: related}, true
	}
}

// Vocabularies used by the default intent table.
var (
	colorWords    = []string{"red", "blue", "green", "black", "white", "yellow", "pink", "purple", "orange", "brown", "gray", "grey"}
	activityWords = []string{"running", "yoga", "fitness", "workout", "exercise", "sports", "gaming", "work", "office", "home"}
	qualityWords  = []string{"best", "top", "premium", "high.?quality", "excellent", "good", "great"}
	saleWords     = []string{"sale", "discount", "deal", "offer", "cheap", "bargain"}
	browseWords   = []string{"show", "find", "what"}
	categoryWords = []string{"electronics", "fashion", "sports", "home", "garden", "kitchen", "tech", "clothing"}

	// synonymTable maps query concepts to product words that signal the same need.
	synonymTable = []struct {
		concept string
		related []string
	}{
		{"headphones", []string{"audio", "music", "sound", "wireless", "bluetooth"}},
		{"shoes", []string{"footwear", "running", "athletic", "comfort"}},
		{"fitness", []string{"yoga", "exercise", "workout", "health", "sports"}},
		{"kitchen", []string{"cooking", "food", "appliance", "home"}},
		{"tech", []string{"electronics", "smart", "digital", "device"}},
	}
)

// wordPattern matches any of words as a whole word, allowing a plural "s".
func wordPattern(words []string) *regexp.Regexp {
	return regexp.MustCompile(`\b(` + strings.Join(words, "|") + `)s?\b`)
}

// DefaultIntentRules returns the storefront intent table. Price rules come first so
// the earliest listed phrasing wins when a query carries several bounds.
func DefaultIntentRules() []IntentRule {
	rules := []IntentRule{
		{Kind: IntentPriceBound, Pattern: regexp.MustCompile(`\bunder\s+\$?(\d+(?:\.\d+)?)`), Extract: amountExtractor},
		{Kind: IntentPriceBound, Pattern: regexp.MustCompile(`\bless\s+than\s+\$?(\d+(?:\.\d+)?)`), Extract: amountExtractor},
		{Kind: IntentPriceBound, Pattern: regexp.MustCompile(`\bbelow\s+\$?(\d+(?:\.\d+)?)`), Extract: amountExtractor},
		{Kind: IntentColor, Pattern: wordPattern(colorWords), Extract: termExtractor},
		{Kind: IntentActivity, Pattern: wordPattern(activityWords), Extract: termExtractor},
		{Kind: IntentQuality, Pattern: wordPattern(qualityWords), Extract: termExtractor},
		{Kind: IntentSale, Pattern: wordPattern(saleWords), Extract: termExtractor},
		{Kind: IntentCategory, Pattern: wordPattern(categoryWords), Extract: termExtractor},
		{Kind: IntentBrowse, Pattern: wordPattern(browseWords), Extract: termExtractor},
	}
	for _, syn := range synonymTable {
		rules = append(rules, IntentRule{
			Kind:    IntentSynonym,
			Pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(syn.concept)),
			Extract: synonymExtractor(syn.related),
		})
	}
	return rules
}

// PriceBound returns the first price bound in the query, if any.
func (q *AnalyzedQuery) PriceBound() (float64, bool) {
	in, ok := q.First(IntentPriceBound)
	if !ok {
		return 0, false
	}
	return in.Amount, true
}
