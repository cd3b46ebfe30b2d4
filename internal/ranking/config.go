package ranking

import (
	"fmt"
	"reflect"
)

// Profile names for the four storefront call sites.
const (
	ProfileSearch       = "search"
	ProfileChat         = "chat"
	ProfilePersonalized = "personalized"
	ProfileRelated      = "related"
)

// MaxJitter bounds the variety jitter any profile may add.
const MaxJitter = 10

// Weights is the additive weight table applied to fired signals.
type Weights struct {
	Keyword          float64 `yaml:"keyword"` // per matching query word
	Category         float64 `yaml:"category"`
	PriceUnderBound  float64 `yaml:"price_under_bound"`
	PriceSimilarity  float64 `yaml:"price_similarity"` // maximum, scaled by similarity
	OnSaleMatch      float64 `yaml:"on_sale_match"`    // product on sale and query asks for a sale
	OnSaleBonus      float64 `yaml:"on_sale_bonus"`    // product on sale, unconditionally
	SalePreference   float64 `yaml:"sale_preference"`  // scaled by the shopper's sale preference
	HighRated        float64 `yaml:"high_rated"`
	ViewCategory     float64 `yaml:"view_category"`     // per viewed product in the same category
	PurchaseCategory float64 `yaml:"purchase_category"` // per purchased product in the same category
	HistoryExact     float64 `yaml:"history_exact"`
	RatingMultiplier float64 `yaml:"rating_multiplier"`
	InStock          float64 `yaml:"in_stock"`
	Color            float64 `yaml:"color"`
	Activity         float64 `yaml:"activity"`
	Synonym          float64 `yaml:"synonym"` // per matching synonym
	JitterMax        float64 `yaml:"jitter_max"`
}

// Profile is the call-site configuration of the ranking module.
type Profile struct {
	Name    string  `yaml:"name"`
	Weights Weights `yaml:"weights"`
	// Backfill tops up the result with the best rated remaining products.
	Backfill bool `yaml:"backfill"`
	// RequireRelevance ignores constraint signals unless a relevance signal fired or
	// the query is a browsing command.
	RequireRelevance bool `yaml:"require_relevance"`
	// StrictConstraints drops products that contradict a stated price, category, or sale.
	StrictConstraints bool `yaml:"strict_constraints"`
	// MaxReasons is how many reason phrases the composed reason keeps.
	MaxReasons int `yaml:"max_reasons"`
	// DefaultReason is used when no phrase fired, and for backfilled entries.
	DefaultReason string `yaml:"default_reason"`
}

// DefaultProfile returns the built-in profile for a call site. Unknown names get the
// search profile under that name.
func DefaultProfile(name string) *Profile {
	switch name {
	case ProfileChat:
		return &Profile{
			Name: ProfileChat,
			Weights: Weights{
				Keyword:         10,
				Category:        12,
				PriceUnderBound: 20,
				OnSaleMatch:     10,
				Color:           15,
				Activity:        15,
			},
			RequireRelevance:  true,
			StrictConstraints: true,
			MaxReasons:        3,
			DefaultReason:     "matches your request",
		}
	case ProfilePersonalized:
		return &Profile{
			Name: ProfilePersonalized,
			Weights: Weights{
				Category:         30,
				PriceUnderBound:  20,
				SalePreference:   15,
				HighRated:        10,
				ViewCategory:     12,
				PurchaseCategory: 25,
				JitterMax:        5,
			},
			Backfill:      true,
			MaxReasons:    2,
			DefaultReason: "recommended for you",
		}
	case ProfileRelated:
		return &Profile{
			Name: ProfileRelated,
			Weights: Weights{
				Category:         50,
				PriceSimilarity:  20,
				OnSaleBonus:      10,
				ViewCategory:     15,
				HistoryExact:     30,
				RatingMultiplier: 5,
				InStock:          5,
				JitterMax:        10,
			},
			Backfill:      true,
			MaxReasons:    2,
			DefaultReason: "popular right now",
		}
	default:
		if name == "" {
			name = ProfileSearch
		}
		return &Profile{
			Name: name,
			Weights: Weights{
				Keyword:         10,
				Category:        12,
				PriceUnderBound: 20,
				OnSaleMatch:     10,
				HighRated:       10,
				Color:           15,
				Activity:        15,
				Synonym:         8,
			},
			RequireRelevance: true,
			MaxReasons:       3,
			DefaultReason:    "relevant to your search",
		}
	}
}

// DefaultProfiles returns the built-in profile for every call site.
func DefaultProfiles() map[string]*Profile {
	return map[string]*Profile{
		ProfileSearch:       DefaultProfile(ProfileSearch),
		ProfileChat:         DefaultProfile(ProfileChat),
		ProfilePersonalized: DefaultProfile(ProfilePersonalized),
		ProfileRelated:      DefaultProfile(ProfileRelated),
	}
}

// ApplyDefaults fills in zero values from the built-in profile of the same name. A
// weight table that is entirely zero is replaced as a whole; individual zero weights
// are kept so a profile can switch a signal off.
func (p *Profile) ApplyDefaults() {
	defaults := DefaultProfile(p.Name)
	if p.Name == "" {
		p.Name = defaults.Name
	}
	if p.Weights == (Weights{}) {
		p.Weights = defaults.Weights
	}
	if p.MaxReasons == 0 {
		p.MaxReasons = defaults.MaxReasons
	}
	if p.DefaultReason == "" {
		p.DefaultReason = defaults.DefaultReason
	}
}

// Validate rejects negative weights and jitter above MaxJitter.
func (p *Profile) Validate() error {
	v := reflect.ValueOf(p.Weights)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if v.Field(i).Float() < 0 {
			return fmt.Errorf("profile %q: weight %s must not be negative", p.Name, t.Field(i).Name)
		}
	}
	if p.Weights.JitterMax > MaxJitter {
		return fmt.Errorf("profile %q: jitter_max %.2f exceeds %d", p.Name, p.Weights.JitterMax, MaxJitter)
	}
	if p.MaxReasons < 0 {
		return fmt.Errorf("profile %q: max_reasons must not be negative", p.Name)
	}
	return nil
}
