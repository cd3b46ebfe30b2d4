package ranking

import (
	"math"
	"strings"

	"github.com/hyperjump/storefront/internal/models"
)

// HighRatingThreshold is the rating at which a quality query treats a product as
// highly rated.
const HighRatingThreshold = 4.5

// CategorySource records which input produced a category match.
type CategorySource int

const (
	CategoryNone CategorySource = iota
	// CategoryFromQuery: the query named the category.
	CategoryFromQuery
	// CategoryFromReference: the product shares the current product's category.
	CategoryFromReference
	// CategoryFromPreference: the category is one of the shopper's preferred ones.
	CategoryFromPreference
)

// Signals are the features derived from comparing one product against a query
// and context.
type Signals struct {
	// Keywords are the query words found in the product text, in query order.
	Keywords       []string
	CategoryMatch  bool
	CategorySource CategorySource

	HasPriceBound   bool
	PriceBound      float64
	PriceUnderBound bool
	BoundFromBudget bool
	// PriceSimilarity is in [0,1]; 1 means the same price as the reference product.
	PriceSimilarity float64

	OnSaleMatch bool
	OnSale      bool
	HighRated   bool
	Rating      float64
	InStock     bool

	ViewCategoryHits     int
	PurchaseCategoryHits int
	HistoryExact         bool

	Color    string
	Activity string
	Synonyms []string

	// Browse is set when the query is a browsing command rather than a lookup.
	Browse bool

	// Jitter is a deterministic value in [0,1) derived from the product id.
	Jitter float64
}

// HasRelevance reports whether any retrieval signal fired. Constraint signals (price
// bound, sale, rating) refine relevance but do not establish it.
func (s *Signals) HasRelevance() bool {
	return len(s.Keywords) > 0 || s.CategoryMatch || s.Color != "" || s.Activity != "" || len(s.Synonyms) > 0
}

// ProductText returns the lowercased text searched by keyword and vocabulary matches:
// name, description, and tags.
func ProductText(p *models.Product) string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteByte(' ')
	b.WriteString(p.Description)
	for _, tag := range p.Tags {
		b.WriteByte(' ')
		b.WriteString(tag)
	}
	return strings.ToLower(b.String())
}

// ExtractSignals derives the signals for one product. It never mutates its inputs and
// treats nil query/context as carrying no information.
func ExtractSignals(p *models.Product, q *AnalyzedQuery, rc *RecommendationContext, jitter JitterFunc) Signals {
	sig := Signals{
		Rating:  p.Rating,
		InStock: p.InStock,
		OnSale:  p.IsOnSale,
	}
	if jitter != nil {
		sig.Jitter = jitter(p.ID)
	}

	text := ProductText(p)
	category := strings.ToLower(p.Category)

	if q != nil && q.Lower != "" {
		sig.Browse = q.Has(IntentBrowse)
		for _, w := range q.Words {
			if strings.Contains(text, w) {
				sig.Keywords = append(sig.Keywords, w)
			}
		}
		if queryNamesCategory(q, category) {
			sig.CategoryMatch = true
			sig.CategorySource = CategoryFromQuery
		}
		if bound, ok := q.PriceBound(); ok {
			sig.HasPriceBound = true
			sig.PriceBound = bound
			sig.PriceUnderBound = p.Price <= bound
		}
		if color, ok := q.First(IntentColor); ok && strings.Contains(text, color.Term) {
			sig.Color = color.Term
		}
		if act, ok := q.First(IntentActivity); ok && (strings.Contains(text, act.Term) || strings.Contains(category, act.Term)) {
			sig.Activity = act.Term
		}
		if q.Has(IntentQuality) && p.Rating >= HighRatingThreshold {
			sig.HighRated = true
		}
		if q.Has(IntentSale) && p.IsOnSale {
			sig.OnSaleMatch = true
		}
		for _, syn := range q.All(IntentSynonym) {
			for _, word := range syn.Related {
				if strings.Contains(text, word) {
					sig.Synonyms = append(sig.Synonyms, word)
				}
			}
		}
	}

	if rc != nil {
		extractContextSignals(&sig, p, category, rc)
	}

	return sig
}

func extractContextSignals(sig *Signals, p *models.Product, category string, rc *RecommendationContext) {
	if rc.Current != nil {
		if !sig.CategoryMatch && strings.EqualFold(rc.Current.Category, p.Category) {
			sig.CategoryMatch = true
			sig.CategorySource = CategoryFromReference
		}
		sig.PriceSimilarity = PriceSimilarity(p.Price, rc.Current.Price)
	}
	if !sig.CategoryMatch {
		for _, c := range rc.PreferredCategories {
			if strings.ToLower(c) == category {
				sig.CategoryMatch = true
				sig.CategorySource = CategoryFromPreference
				break
			}
		}
	}
	if !sig.HasPriceBound && rc.Budget > 0 {
		sig.HasPriceBound = true
		sig.PriceBound = rc.Budget
		sig.BoundFromBudget = true
		sig.PriceUnderBound = p.Price <= rc.Budget
	}
	if rc.RatingThreshold > 0 && p.Rating >= rc.RatingThreshold {
		sig.HighRated = true
	}
	for _, h := range rc.ViewHistory {
		if h == nil {
			continue
		}
		if strings.EqualFold(h.Category, p.Category) {
			sig.ViewCategoryHits++
		}
		if h.ID == p.ID {
			sig.HistoryExact = true
		}
	}
	for _, h := range rc.PurchaseHistory {
		if h != nil && strings.EqualFold(h.Category, p.Category) {
			sig.PurchaseCategoryHits++
		}
	}
}

// queryNamesCategory matches the query's category token against the product category,
// or the whole query against it in either direction.
func queryNamesCategory(q *AnalyzedQuery, category string) bool {
	if category == "" {
		return false
	}
	if in, ok := q.First(IntentCategory); ok && strings.Contains(category, in.Term) {
		return true
	}
	if strings.Contains(q.Lower, category) {
		return true
	}
	return len([]rune(q.Lower)) > minWordLen && strings.Contains(category, q.Lower)
}

// PriceSimilarity is 1 for identical prices, falling linearly to 0 when the difference
// reaches the reference price.
func PriceSimilarity(price, reference float64) float64 {
	if reference <= 0 {
		if price == reference {
			return 1
		}
		return 0
	}
	return math.Max(0, 1-math.Abs(price-reference)/reference)
}

// ViolatesConstraints reports whether a product contradicts a hard constraint stated in
// the query: a price bound, a category token, or a sale request. A category token is
// also satisfied by the product text, so "kitchen" finds a coffee maker tagged kitchen.
func ViolatesConstraints(p *models.Product, q *AnalyzedQuery) bool {
	if q == nil || q.Lower == "" {
		return false
	}
	if bound, ok := q.PriceBound(); ok && p.Price > bound {
		return true
	}
	if in, ok := q.First(IntentCategory); ok {
		if !strings.Contains(strings.ToLower(p.Category), in.Term) && !strings.Contains(ProductText(p), in.Term) {
			return true
		}
	}
	if q.Has(IntentSale) && !p.IsOnSale {
		return true
	}
	return false
}
