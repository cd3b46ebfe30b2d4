package keyword

import (
	"sort"
	"strings"
)

// Suggestion represents a spelling suggestion with its score.
type Suggestion struct {
	Term      string  // The suggested term
	Distance  int     // Edit distance from the original term
	Frequency int     // Number of products containing the term
	Score     float64 // Combined score for ranking
}

// SpellCheckResult contains the result of spell checking a query.
type SpellCheckResult struct {
	OriginalQuery   string
	CorrectedQuery  string
	Suggestions     []Suggestion // Suggestions for each misspelled term
	HasCorrections  bool
	MisspelledTerms []string
}

// SpellChecker suggests catalog terms for query words the catalog does not contain.
// It is safe for concurrent use.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int
	stopWords      map[string]bool
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency sets the minimum product frequency for suggested terms.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions to return per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// defaultStopWords are query words that are never corrected.
var defaultStopWords = []string{
	"the", "and", "for", "with", "under", "below", "less", "than", "show", "find", "what",
	"any", "some", "cheap", "best", "top", "good", "great", "sale", "deal", "deals",
}

// NewSpellChecker creates a new SpellChecker over the given dictionary.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
		stopWords:      make(map[string]bool, len(defaultStopWords)),
	}
	for _, w := range defaultStopWords {
		s.stopWords[w] = true
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check checks a query for words missing from the dictionary and proposes corrections.
// Numbers, stop words, and words shorter than three runes are kept as typed.
func (s *SpellChecker) Check(query string) *SpellCheckResult {
	result := &SpellCheckResult{
		OriginalQuery:   query,
		Suggestions:     make([]Suggestion, 0),
		MisspelledTerms: make([]string, 0),
	}

	words := strings.Fields(strings.ToLower(query))
	corrected := make([]string, 0, len(words))
	for _, word := range words {
		term := strings.Trim(word, ".,!?;:\"'()")
		if !s.checkable(term) || !s.IsMisspelled(term) {
			corrected = append(corrected, word)
			continue
		}

		suggestions := s.Suggest(term)
		if len(suggestions) == 0 {
			corrected = append(corrected, word)
			continue
		}
		result.HasCorrections = true
		result.MisspelledTerms = append(result.MisspelledTerms, term)
		result.Suggestions = append(result.Suggestions, suggestions...)
		corrected = append(corrected, suggestions[0].Term)
	}

	result.CorrectedQuery = strings.Join(corrected, " ")
	return result
}

func (s *SpellChecker) checkable(term string) bool {
	if len([]rune(term)) < minTermLen || s.stopWords[term] {
		return false
	}
	return strings.IndexFunc(term, func(r rune) bool { return r >= '0' && r <= '9' || r == '$' }) < 0
}

// Suggest returns spelling suggestions for a single term, best first. Ties are broken
// alphabetically so the output is stable.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	termLower := strings.ToLower(term)
	termLen := len([]rune(termLower))
	suggestions := make([]Suggestion, 0)

	for _, dictTerm := range s.dictionary.Terms() {
		if dictTerm == termLower {
			continue
		}
		lenDiff := len([]rune(dictTerm)) - termLen
		if lenDiff < 0 {
			lenDiff = -lenDiff
		}
		if lenDiff > s.maxDistance {
			continue
		}

		distance := EditDistance(termLower, dictTerm)
		if distance > s.maxDistance {
			continue
		}
		freq := s.dictionary.Frequency(dictTerm)
		if freq < s.minFreq {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Term:      dictTerm,
			Distance:  distance,
			Frequency: freq,
			Score:     float64(freq) / float64(distance+1),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Term < suggestions[j].Term
	})

	if len(suggestions) > s.maxSuggestions {
		suggestions = suggestions[:s.maxSuggestions]
	}
	return suggestions
}

// IsMisspelled reports whether a term is absent from the dictionary.
func (s *SpellChecker) IsMisspelled(term string) bool {
	return !s.dictionary.Contains(term)
}

// DidYouMean returns the corrected query, or "" when nothing was corrected.
func (s *SpellChecker) DidYouMean(query string) string {
	result := s.Check(query)
	if !result.HasCorrections || result.CorrectedQuery == strings.ToLower(strings.TrimSpace(query)) {
		return ""
	}
	return result.CorrectedQuery
}
