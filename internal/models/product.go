// Package models defines core data structures for products, queries, and ranked results.
package models

// Product is a catalog entry. Products are read-only once a catalog snapshot is built.
//
// IsOnSale is an independent flag; it is not derived from OriginalPrice and Price, so a
// product may be flagged on sale without a recorded discount. HasDiscount reports the
// price-derived view.
type Product struct {
	ID            string   `json:"id" yaml:"id" validate:"required"`
	Name          string   `json:"name" yaml:"name" validate:"required"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Category      string   `json:"category" yaml:"category" validate:"required"`
	Brand         string   `json:"brand,omitempty" yaml:"brand,omitempty"`
	Price         float64  `json:"price" yaml:"price" validate:"gte=0"`
	OriginalPrice float64  `json:"original_price,omitempty" yaml:"original_price,omitempty" validate:"gte=0"`
	Rating        float64  `json:"rating" yaml:"rating" validate:"gte=0,lte=5"`
	ReviewCount   int      `json:"review_count" yaml:"review_count" validate:"gte=0"`
	Tags          []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	InStock       bool     `json:"in_stock" yaml:"in_stock"`
	IsOnSale      bool     `json:"is_on_sale" yaml:"is_on_sale"`
}

// HasDiscount reports whether a pre-discount price above the current price is recorded.
func (p *Product) HasDiscount() bool {
	return p.OriginalPrice > p.Price
}

// SaleFlagConsistent reports whether IsOnSale agrees with the recorded prices.
func (p *Product) SaleFlagConsistent() bool {
	return p.IsOnSale == p.HasDiscount()
}
