// Package storage defines the persistence interface for the product catalog.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/storefront/internal/models"
)

// ErrNotFound is returned when a product id has no stored row.
var ErrNotFound = errors.New("product not found")

// Storage defines product persistence operations. Products are written only by
// catalog import and read back on startup.
type Storage interface {
	UpsertProducts(ctx context.Context, products []*models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, offset, limit int) ([]*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	// ReplaceProducts swaps the whole catalog in one transaction.
	ReplaceProducts(ctx context.Context, products []*models.Product) error

	CountProducts(ctx context.Context) (int64, error)

	Close() error
}
