package ranking

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestScorer_Score(t *testing.T) {
	scorer := NewScorer(DefaultProfile(ProfileSearch))

	tests := []struct {
		name       string
		sig        Signals
		want       float64
		wantPhrase []string
	}{
		{
			name: "no signals",
			sig:  Signals{Rating: 4.9, InStock: true},
			want: 0,
		},
		{
			name:       "keywords and category",
			sig:        Signals{Keywords: []string{"yoga", "mat"}, CategoryMatch: true, CategorySource: CategoryFromQuery},
			want:       32,
			wantPhrase: []string{`matches "yoga"`, `matches "mat"`, "category match"},
		},
		{
			name: "constraint without relevance",
			sig:  Signals{HasPriceBound: true, PriceBound: 50, PriceUnderBound: true, HighRated: true},
			want: 0,
		},
		{
			name:       "constraint with relevance",
			sig:        Signals{Color: "red", HasPriceBound: true, PriceBound: 50, PriceUnderBound: true},
			want:       35,
			wantPhrase: []string{"under $50", "color match: red"},
		},
		{
			name:       "browse unlocks constraints",
			sig:        Signals{Browse: true, OnSale: true, OnSaleMatch: true},
			want:       10,
			wantPhrase: []string{"on sale"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, contribs := scorer.Score(&tt.sig, nil)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
			var phrases []string
			for _, c := range contribs {
				if c.Phrase != "" {
					phrases = append(phrases, c.Phrase)
				}
			}
			if !reflect.DeepEqual(phrases, tt.wantPhrase) {
				t.Errorf("Phrases = %v, want %v", phrases, tt.wantPhrase)
			}
		})
	}
}

func TestScorer_RelatedBackgroundSignals(t *testing.T) {
	scorer := NewScorer(DefaultProfile(ProfileRelated))

	sig := Signals{Rating: 4, InStock: true, Jitter: 0.5, PriceSimilarity: 0.5}
	got, contribs := scorer.Score(&sig, nil)

	// 0.5*20 similarity + 4*5 rating + 5 stock + 0.5*10 jitter
	if math.Abs(got-40) > 1e-9 {
		t.Errorf("Score = %v, want 40", got)
	}
	for _, c := range contribs {
		if c.Signal == "rating" && c.Phrase != "" {
			t.Errorf("Rating should not produce a reason phrase, got %q", c.Phrase)
		}
	}
}

func TestScorer_SalePreference(t *testing.T) {
	scorer := NewScorer(DefaultProfile(ProfilePersonalized))
	sig := Signals{OnSale: true}

	got, _ := scorer.Score(&sig, &RecommendationContext{SalePreference: 0.4})
	if math.Abs(got-6) > 1e-9 {
		t.Errorf("Score = %v, want 6", got)
	}

	got, _ = scorer.Score(&sig, &RecommendationContext{SalePreference: 3})
	if math.Abs(got-15) > 1e-9 {
		t.Errorf("Expected sale preference to clamp at 1, got %v", got)
	}
}

func TestScorer_JitterCapped(t *testing.T) {
	p := DefaultProfile(ProfileRelated)
	p.Weights = Weights{JitterMax: 100}
	got, _ := NewScorer(p).Score(&Signals{Jitter: 0.99}, nil)
	if got > MaxJitter {
		t.Errorf("Expected jitter to stay within %d, got %v", MaxJitter, got)
	}
}

func TestScorer_BudgetPhrase(t *testing.T) {
	scorer := NewScorer(DefaultProfile(ProfilePersonalized))
	sig := Signals{HasPriceBound: true, PriceBound: 80, PriceUnderBound: true, BoundFromBudget: true}
	_, contribs := scorer.Score(&sig, nil)
	if len(contribs) != 1 || contribs[0].Phrase != "within your budget" {
		t.Errorf("Unexpected contributions %+v", contribs)
	}
}

func TestComposeReason(t *testing.T) {
	contribs := []Contribution{
		{Signal: "keyword", Points: 10, Phrase: `matches "yoga"`},
		{Signal: "on_sale", Points: 10, Phrase: "on sale"},
		{Signal: "sale_preference", Points: 5, Phrase: "on sale"},
		{Signal: "rating", Points: 20},
		{Signal: "activity", Points: 15, Phrase: "activity: yoga"},
	}

	tags, reason := ComposeReason(contribs, 2, "fallback")
	if !reflect.DeepEqual(tags, []string{`matches "yoga"`, "on sale", "activity: yoga"}) {
		t.Errorf("Tags = %v", tags)
	}
	if reason != `matches "yoga", on sale` {
		t.Errorf("Reason = %q", reason)
	}
	if strings.Count(reason, "on sale") != 1 {
		t.Error("Expected repeated phrases to collapse")
	}

	tags, reason = ComposeReason(nil, 3, "recommended for you")
	if tags != nil || reason != "recommended for you" {
		t.Errorf("Expected fallback, got %v %q", tags, reason)
	}
}

func TestJitter(t *testing.T) {
	for _, id := range []string{"1", "2", "abc", ""} {
		v := IDJitter(id)
		if v < 0 || v >= 1 {
			t.Errorf("IDJitter(%q) = %v out of range", id, v)
		}
		if v != IDJitter(id) {
			t.Errorf("IDJitter(%q) is not deterministic", id)
		}
	}

	a, b := SeededJitter(1), SeededJitter(2)
	differs := false
	for _, id := range []string{"1", "2", "3", "4", "5", "6"} {
		if a(id) != SeededJitter(1)(id) {
			t.Errorf("SeededJitter is not deterministic for %q", id)
		}
		if a(id) != b(id) {
			differs = true
		}
	}
	if !differs {
		t.Error("Expected different seeds to produce different jitter")
	}
}

func TestFallbackSuggestions(t *testing.T) {
	tests := []struct {
		query string
		first string
	}{
		{"blue shoe laces", "running shoes"},
		{"Music box", "headphones"},
		{"workout plan", "yoga mats"},
		{"zzz", "Try searching for 'wireless headphones'"},
	}
	for _, tt := range tests {
		got := FallbackSuggestions(tt.query)
		if len(got) != 3 || got[0] != tt.first {
			t.Errorf("FallbackSuggestions(%q) = %v", tt.query, got)
		}
	}

	got := FallbackSuggestions("zzz")
	got[0] = "changed"
	if FallbackSuggestions("zzz")[0] == "changed" {
		t.Error("Expected a fresh slice per call")
	}
}
