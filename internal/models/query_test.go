package models

import (
	"errors"
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name      string
		query     *SearchQuery
		wantErr   bool
		wantLimit int
	}{
		{"empty query", &SearchQuery{Query: ""}, true, 0},
		{"blank query", &SearchQuery{Query: "   "}, true, 0},
		{"sets default limit", &SearchQuery{Query: "x", Limit: 0}, false, DefaultSearchLimit},
		{"keeps limit", &SearchQuery{Query: "x", Limit: 4}, false, 4},
		{"caps limit", &SearchQuery{Query: "x", Limit: 500}, false, MaxSearchLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyQuery) {
					t.Errorf("expected ErrEmptyQuery, got %v", err)
				}
				return
			}
			if tt.query.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", tt.query.Limit, tt.wantLimit)
			}
		})
	}
}

func TestSearchQuery_ValidateOffset(t *testing.T) {
	q := &SearchQuery{Query: "yoga", Offset: -1}
	if err := q.Validate(); !errors.Is(err, ErrInvalidOffset) {
		t.Errorf("expected ErrInvalidOffset, got %v", err)
	}
	q = &SearchQuery{Query: "yoga", Offset: 3}
	if err := q.Validate(); err != nil || q.Offset != 3 {
		t.Errorf("Validate() = %v, offset %d", err, q.Offset)
	}
}

func TestChatQuery_Validate(t *testing.T) {
	if err := (&ChatQuery{Message: " "}).Validate(); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("expected ErrEmptyQuery, got %v", err)
	}
	if err := (&ChatQuery{Message: "hi"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProduct_HasDiscount(t *testing.T) {
	tests := []struct {
		name           string
		p              Product
		wantDiscount   bool
		wantConsistent bool
	}{
		{"discounted and flagged", Product{Price: 79.99, OriginalPrice: 99.99, IsOnSale: true}, true, true},
		{"flagged without discount", Product{Price: 10, IsOnSale: true}, false, false},
		{"plain", Product{Price: 10}, false, true},
		{"discount without flag", Product{Price: 10, OriginalPrice: 12}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.HasDiscount(); got != tt.wantDiscount {
				t.Errorf("HasDiscount() = %v, want %v", got, tt.wantDiscount)
			}
			if got := tt.p.SaleFlagConsistent(); got != tt.wantConsistent {
				t.Errorf("SaleFlagConsistent() = %v, want %v", got, tt.wantConsistent)
			}
		})
	}
}
