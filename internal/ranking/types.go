// Package ranking scores catalog products against a search query or a recommendation
// context and returns an ordered, explained result list.
//
// Everything in this package is pure: callers pass the catalog snapshot and the
// shopper's state explicitly, and identical inputs always produce identical output.
package ranking

import (
	"github.com/hyperjump/storefront/internal/models"
)

// IntentKind identifies what a query intent rule extracted.
type IntentKind int

const (
	// IntentPriceBound is an upper price limit ("under $100").
	IntentPriceBound IntentKind = iota
	// IntentColor is a color word from the color vocabulary.
	IntentColor
	// IntentActivity is an activity word (running, yoga, ...).
	IntentActivity
	// IntentQuality asks for well rated products (best, premium, ...).
	IntentQuality
	// IntentSale asks for discounted products (sale, deal, ...).
	IntentSale
	// IntentCategory names a catalog category token.
	IntentCategory
	// IntentSynonym names a concept with a list of related product words.
	IntentSynonym
	// IntentBrowse is a browsing command (show, find, what) that lets constraints
	// alone select products.
	IntentBrowse
)

// String returns a string representation of the intent kind.
func (k IntentKind) String() string {
	switch k {
	case IntentPriceBound:
		return "price_bound"
	case IntentColor:
		return "color"
	case IntentActivity:
		return "activity"
	case IntentQuality:
		return "quality"
	case IntentSale:
		return "sale"
	case IntentCategory:
		return "category"
	case IntentSynonym:
		return "synonym"
	case IntentBrowse:
		return "browse"
	default:
		return "unknown"
	}
}

// Intent is a tagged match result produced by an intent rule.
type Intent struct {
	Kind IntentKind
	// Term is the matched vocabulary word, lowercased.
	Term string
	// Amount is set for IntentPriceBound.
	Amount float64
	// Related lists the expansion words for IntentSynonym.
	Related []string
}

// AnalyzedQuery holds the parsed form of a free-text query.
type AnalyzedQuery struct {
	// Original is the query as typed.
	Original string
	// Lower is the trimmed, lowercased query.
	Lower string
	// Words are the normalized, de-duplicated query words longer than two characters.
	Words []string
	// Intents are the rule matches in rule-table order.
	Intents []Intent
}

// First returns the first intent of the given kind.
func (q *AnalyzedQuery) First(kind IntentKind) (Intent, bool) {
	if q == nil {
		return Intent{}, false
	}
	for _, in := range q.Intents {
		if in.Kind == kind {
			return in, true
		}
	}
	return Intent{}, false
}

// Has reports whether the query carries an intent of the given kind.
func (q *AnalyzedQuery) Has(kind IntentKind) bool {
	_, ok := q.First(kind)
	return ok
}

// All returns every intent of the given kind in rule order.
func (q *AnalyzedQuery) All(kind IntentKind) []Intent {
	if q == nil {
		return nil
	}
	var out []Intent
	for _, in := range q.Intents {
		if in.Kind == kind {
			out = append(out, in)
		}
	}
	return out
}

// RecommendationContext is the shopper state used by recommendation call sites.
// It is built per call by the caller and never retained.
type RecommendationContext struct {
	// Current is the product being viewed (related-products widget).
	Current *models.Product
	// ViewHistory and PurchaseHistory are previously seen and bought products.
	ViewHistory     []*models.Product
	PurchaseHistory []*models.Product
	// Cart members are always excluded from the output.
	Cart []*models.Product
	// PreferredCategories come from the shopper's cohort.
	PreferredCategories []string
	// Budget is an upper price preference; 0 means none.
	Budget float64
	// SalePreference in [0,1] scales the sale-preference weight.
	SalePreference float64
	// RatingThreshold marks products at or above it as highly rated; 0 means none.
	RatingThreshold float64
}

// Query is the input to a ranking call: free text, a recommendation context, or both.
type Query struct {
	Text    string
	Context *RecommendationContext
}

// TextQuery builds a query from free text.
func TextQuery(text string) Query {
	return Query{Text: text}
}

// ContextQuery builds a query from a recommendation context.
func ContextQuery(ctx *RecommendationContext) Query {
	return Query{Context: ctx}
}

// Options bounds a ranking call.
type Options struct {
	// MaxItems is the result budget. Values <= 0 yield an empty result.
	MaxItems int
	// Exclude lists product ids that must never be scored or returned.
	Exclude []string
}

// ScoredResult is one ranked product with its score and explanation.
type ScoredResult struct {
	Product *models.Product
	// Score is never negative. Backfilled entries keep their (zero) computed score.
	Score float64
	// Tags are the reason phrases of every fired signal, in firing order.
	Tags []string
	// Reason is the composed display string.
	Reason string
	// Backfilled marks entries appended by the rating fallback.
	Backfilled bool
}
