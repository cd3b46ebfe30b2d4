// Package pricing suggests a selling price for a catalog product from its demand,
// stock level, category trend, and competitor price, never going below a minimum
// margin over cost.
package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hyperjump/storefront/internal/models"
)

// MinMargin is the smallest markup over cost a suggestion may carry.
const MinMargin = 0.30

// Demand levels, by weekly sales.
const (
	DemandLow    = "low"
	DemandMedium = "medium"
	DemandHigh   = "high"
)

// Category trend directions.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

const (
	baseConfidence = 0.7
	minConfidence  = 0.3
	maxConfidence  = 0.95

	lowStock  = 10
	highStock = 50
)

var demandMultipliers = map[string]float64{
	DemandLow:    0.95,
	DemandMedium: 1.0,
	DemandHigh:   1.15,
}

type categoryTrend struct {
	multiplier float64
	trend      string
}

// categoryTrends is keyed by lowercased category.
var categoryTrends = map[string]categoryTrend{
	"electronics":   {1.05, TrendUp},
	"fashion":       {0.98, TrendDown},
	"sports":        {1.02, TrendStable},
	"home & garden": {1.03, TrendUp},
}

var validate = validator.New()

// Inputs are the figures a suggestion needs beyond the catalog entry.
type Inputs struct {
	Cost         float64 `json:"cost" validate:"gt=0"`
	Stock        int     `json:"stock" validate:"gte=0"`
	SalesPerWeek float64 `json:"sales_per_week" validate:"gte=0"`
	// CompetitorPrice is optional; zero means unknown.
	CompetitorPrice float64 `json:"competitor_price,omitempty" validate:"gte=0"`
}

// Suggestion is a suggested price with the rules that produced it.
type Suggestion struct {
	ProductID      string   `json:"product_id"`
	CurrentPrice   float64  `json:"current_price"`
	SuggestedPrice float64  `json:"suggested_price"`
	MinimumPrice   float64  `json:"minimum_price"`
	Confidence     float64  `json:"confidence"`
	Demand         string   `json:"demand"`
	Trend          string   `json:"trend"`
	Reasons        []string `json:"reasons"`
}

// DemandLevel classifies weekly sales.
func DemandLevel(salesPerWeek float64) string {
	switch {
	case salesPerWeek > 10:
		return DemandHigh
	case salesPerWeek > 5:
		return DemandMedium
	default:
		return DemandLow
	}
}

// Suggest applies the demand, stock, category, competitor, and margin rules in that
// order to the product's current price. The result is rounded to cents.
func Suggest(p *models.Product, in Inputs) (*Suggestion, error) {
	if p == nil {
		return nil, fmt.Errorf("pricing: nil product")
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	s := &Suggestion{
		ProductID:    p.ID,
		CurrentPrice: p.Price,
		MinimumPrice: ceilCents(in.Cost * (1 + MinMargin)),
		Demand:       DemandLevel(in.SalesPerWeek),
		Trend:        TrendStable,
		Reasons:      make([]string, 0, 4),
	}
	price := p.Price
	confidence := baseConfidence

	price *= demandMultipliers[s.Demand]
	s.Reasons = append(s.Reasons, fmt.Sprintf("%s demand (%g sales/week)", s.Demand, in.SalesPerWeek))

	switch {
	case in.Stock < lowStock:
		price *= 1.1
		confidence += 0.1
		s.Reasons = append(s.Reasons, "low stock creates urgency")
	case in.Stock > highStock:
		price *= 0.95
		s.Reasons = append(s.Reasons, "high stock suggests price reduction")
	}

	if ct, ok := categoryTrends[strings.ToLower(p.Category)]; ok {
		price *= ct.multiplier
		s.Trend = ct.trend
		s.Reasons = append(s.Reasons, fmt.Sprintf("%s category trending %s", p.Category, ct.trend))
	}

	if in.CompetitorPrice > 0 && in.CompetitorPrice < price*0.9 {
		price = in.CompetitorPrice * 1.05
		confidence -= 0.1
		s.Reasons = append(s.Reasons, "adjusted for competitor pricing")
	}

	if roundCents(price) < s.MinimumPrice {
		price = s.MinimumPrice
		confidence -= 0.2
		s.Reasons = append(s.Reasons, "maintaining minimum 30% margin")
	}

	s.SuggestedPrice = roundCents(price)
	s.Confidence = math.Max(minConfidence, math.Min(maxConfidence, confidence))
	return s, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ceilCents rounds up to the cent, ignoring float noise below it.
func ceilCents(v float64) float64 {
	return math.Ceil(v*100-1e-6) / 100
}
