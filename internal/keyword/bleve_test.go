package keyword

import (
	"reflect"
	"sort"
	"testing"

	"github.com/hyperjump/storefront/internal/models"
)

func newTestDictionary(t *testing.T, products []*models.Product) *BleveDictionary {
	t.Helper()
	d, err := NewBleveDictionary(products)
	if err != nil {
		t.Fatalf("NewBleveDictionary: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestBleveDictionary(t *testing.T) {
	d := newTestDictionary(t, []*models.Product{
		{ID: "1", Name: "Wireless Bluetooth Headphones", Category: "Electronics", Brand: "AudioTech", Tags: []string{"wireless", "audio"}},
		{ID: "2", Name: "Smart Home Camera", Description: "Wi-Fi camera with 1080p.", Category: "Electronics"},
		nil,
	})

	tests := []struct {
		term string
		want int
	}{
		{"electronics", 2},
		{"wireless", 1},
		{"camera", 1},
		{"Camera", 1},
		{"1080p", 1},
		{"audiotech", 1},
		{"with", 1},
		{"wi", 0},
		{"speaker", 0},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			if got := d.Frequency(tt.term); got != tt.want {
				t.Errorf("Frequency(%q) = %d, want %d", tt.term, got, tt.want)
			}
			if got := d.Contains(tt.term); got != (tt.want > 0) {
				t.Errorf("Contains(%q) = %v", tt.term, got)
			}
		})
	}

	terms := d.Terms()
	if !sort.StringsAreSorted(terms) || len(terms) != d.Len() {
		t.Errorf("expected sorted terms, got %v", terms)
	}
	n, err := d.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("DocCount = %d, want 2", n)
	}
}

func TestBleveDictionary_Terms(t *testing.T) {
	d := newTestDictionary(t, []*models.Product{
		{ID: "5", Name: "Coffee-Maker, 12 cup", Category: "Home & Garden"},
	})

	want := []string{"coffee", "cup", "garden", "home", "maker"}
	if got := d.Terms(); !reflect.DeepEqual(got, want) {
		t.Errorf("Terms = %v, want %v", got, want)
	}
}

func TestBleveDictionary_Empty(t *testing.T) {
	d := newTestDictionary(t, nil)
	if d.Len() != 0 || d.Contains("anything") {
		t.Errorf("expected an empty dictionary, got %v", d.Terms())
	}
}

func TestBleveDictionary_SpellChecker(t *testing.T) {
	d := newTestDictionary(t, []*models.Product{
		{ID: "b1", Name: "Bamboo Cutting Board", Category: "Home & Garden"},
		{ID: "b2", Name: "Yoga Mat", Category: "Sports"},
	})
	sc := NewSpellChecker(d)

	if got := sc.DidYouMean("bambo cuting"); got != "bamboo cutting" {
		t.Errorf("DidYouMean = %q, want %q", got, "bamboo cutting")
	}
	if got := sc.DidYouMean("yoga"); got != "" {
		t.Errorf("expected no correction, got %q", got)
	}
}
