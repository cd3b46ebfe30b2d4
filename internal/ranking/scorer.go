package ranking

import (
	"fmt"
	"math"
	"strconv"
)

// Contribution is the share of a score added by one fired signal. Phrase is empty
// for background signals (rating, stock, jitter) that never appear in reasons.
type Contribution struct {
	Signal string
	Points float64
	Phrase string
}

// ScoreBreakdown is the full scoring record of one product.
type ScoreBreakdown struct {
	Signals       Signals
	Contributions []Contribution
	Score         float64
}

// Scorer sums weighted contributions from fired signals.
type Scorer struct {
	profile *Profile
}

// NewScorer creates a scorer for the given profile.
func NewScorer(profile *Profile) *Scorer {
	return &Scorer{profile: profile}
}

// Name returns the profile name the scorer applies.
func (s *Scorer) Name() string {
	return s.profile.Name
}

// Score combines the signals into a non-negative score. Contributions are returned in
// firing order, which is also reason order.
func (s *Scorer) Score(sig *Signals, rc *RecommendationContext) (float64, []Contribution) {
	w := s.profile.Weights
	var contribs []Contribution
	add := func(signal string, points float64, phrase string) {
		if points <= 0 {
			return
		}
		contribs = append(contribs, Contribution{Signal: signal, Points: points, Phrase: phrase})
	}

	constraints := !s.profile.RequireRelevance || sig.HasRelevance() || sig.Browse

	for _, word := range sig.Keywords {
		add("keyword", w.Keyword, fmt.Sprintf("matches %q", word))
	}
	if sig.CategoryMatch {
		add("category", w.Category, categoryPhrase(sig.CategorySource))
	}
	if constraints && sig.PriceUnderBound {
		phrase := "under $" + formatAmount(sig.PriceBound)
		if sig.BoundFromBudget {
			phrase = "within your budget"
		}
		add("price_under_bound", w.PriceUnderBound, phrase)
	}
	if sig.PriceSimilarity > 0 {
		add("price_similarity", w.PriceSimilarity*sig.PriceSimilarity, "similar price")
	}
	if sig.Color != "" {
		add("color", w.Color, "color match: "+sig.Color)
	}
	if sig.Activity != "" {
		add("activity", w.Activity, "activity: "+sig.Activity)
	}
	if constraints && sig.HighRated {
		add("high_rated", w.HighRated, "highly rated")
	}
	if constraints && sig.OnSaleMatch {
		add("on_sale_match", w.OnSaleMatch, "on sale")
	}
	if sig.OnSale {
		add("on_sale", w.OnSaleBonus, "on sale")
		if rc != nil {
			add("sale_preference", w.SalePreference*clamp01(rc.SalePreference), "on sale")
		}
	}
	if sig.ViewCategoryHits > 0 {
		add("view_category", w.ViewCategory*float64(sig.ViewCategoryHits), "similar to viewed items")
	}
	if sig.PurchaseCategoryHits > 0 {
		add("purchase_category", w.PurchaseCategory*float64(sig.PurchaseCategoryHits), "based on your purchases")
	}
	if sig.HistoryExact {
		add("history_exact", w.HistoryExact, "previously viewed")
	}
	for _, syn := range sig.Synonyms {
		add("synonym", w.Synonym, "semantic: "+syn)
	}
	add("rating", w.RatingMultiplier*sig.Rating, "")
	if sig.InStock {
		add("in_stock", w.InStock, "")
	}
	add("jitter", math.Min(w.JitterMax, MaxJitter)*sig.Jitter, "")

	total := 0.0
	for _, c := range contribs {
		total += c.Points
	}
	return math.Max(0, total), contribs
}

func categoryPhrase(src CategorySource) string {
	switch src {
	case CategoryFromReference:
		return "same category"
	case CategoryFromPreference:
		return "matches your interests"
	default:
		return "category match"
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
