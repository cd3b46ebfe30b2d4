package session

import (
	"fmt"
	"math/rand"
	"sort"
)

// Cohort is a shopper segment with its recommendation preferences.
type Cohort struct {
	Name                string   `json:"name" yaml:"name"`
	DisplayName         string   `json:"display_name" yaml:"display_name"`
	PreferredCategories []string `json:"preferred_categories" yaml:"preferred_categories"`
	MaxPrice            float64  `json:"max_price" yaml:"max_price"`
	SalePreference      float64  `json:"sale_preference" yaml:"sale_preference"`
	RatingThreshold     float64  `json:"rating_threshold" yaml:"rating_threshold"`
}

// Cohort names.
const (
	CohortBudgetConscious   = "budget_conscious"
	CohortPremiumBuyer      = "premium_buyer"
	CohortFitnessEnthusiast = "fitness_enthusiast"
	CohortTechLover         = "tech_lover"
	CohortFashionForward    = "fashion_forward"
)

var cohorts = map[string]Cohort{
	CohortBudgetConscious: {
		Name:                CohortBudgetConscious,
		DisplayName:         "Budget Conscious",
		PreferredCategories: []string{"Fashion", "Home & Garden"},
		MaxPrice:            50,
		SalePreference:      0.8,
		RatingThreshold:     4.0,
	},
	CohortPremiumBuyer: {
		Name:                CohortPremiumBuyer,
		DisplayName:         "Premium Buyer",
		PreferredCategories: []string{"Electronics", "Sports"},
		MaxPrice:            500,
		SalePreference:      0.2,
		RatingThreshold:     4.5,
	},
	CohortFitnessEnthusiast: {
		Name:                CohortFitnessEnthusiast,
		DisplayName:         "Fitness Enthusiast",
		PreferredCategories: []string{"Sports", "Health"},
		MaxPrice:            150,
		SalePreference:      0.4,
		RatingThreshold:     4.3,
	},
	CohortTechLover: {
		Name:                CohortTechLover,
		DisplayName:         "Tech Lover",
		PreferredCategories: []string{"Electronics", "Technology"},
		MaxPrice:            300,
		SalePreference:      0.3,
		RatingThreshold:     4.4,
	},
	CohortFashionForward: {
		Name:                CohortFashionForward,
		DisplayName:         "Fashion Forward",
		PreferredCategories: []string{"Fashion", "Accessories"},
		MaxPrice:            200,
		SalePreference:      0.6,
		RatingThreshold:     4.2,
	},
}

// CohortNames returns every cohort name, sorted.
func CohortNames() []string {
	names := make([]string, 0, len(cohorts))
	for name := range cohorts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupCohort returns the cohort with the given name.
func LookupCohort(name string) (Cohort, error) {
	c, ok := cohorts[name]
	if !ok {
		return Cohort{}, fmt.Errorf("%w: %s", ErrUnknownCohort, name)
	}
	c.PreferredCategories = append([]string(nil), c.PreferredCategories...)
	return c, nil
}

// randomCohort picks a cohort name with rng.
func randomCohort(rng *rand.Rand) string {
	names := CohortNames()
	return names[rng.Intn(len(names))]
}
