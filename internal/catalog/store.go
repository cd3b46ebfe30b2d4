package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hyperjump/storefront/internal/models"
	"github.com/hyperjump/storefront/internal/storage"
)

// ErrProductNotFound is returned when an id is not in the current snapshot.
var ErrProductNotFound = errors.New("product not found")

// Snapshot is an immutable view of the catalog. Callers must not modify the products
// it returns.
type Snapshot struct {
	products   []*models.Product
	byID       map[string]*models.Product
	categories []string
}

func newSnapshot(products []*models.Product) *Snapshot {
	s := &Snapshot{
		products: make([]*models.Product, len(products)),
		byID:     make(map[string]*models.Product, len(products)),
	}
	seen := make(map[string]bool)
	for i, p := range products {
		cp := *p
		cp.Tags = append([]string(nil), p.Tags...)
		s.products[i] = &cp
		s.byID[cp.ID] = &cp
		if !seen[cp.Category] {
			seen[cp.Category] = true
			s.categories = append(s.categories, cp.Category)
		}
	}
	sort.Strings(s.categories)
	return s
}

// Products returns the products in catalog order.
func (s *Snapshot) Products() []*models.Product {
	return s.products
}

// Get returns the product with the given id.
func (s *Snapshot) Get(id string) (*models.Product, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return p, nil
}

// GetMany returns the products for the given ids, skipping unknown ones.
func (s *Snapshot) GetMany(ids []string) []*models.Product {
	out := make([]*models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Filter selects products by category and price range. Zero fields match everything.
type Filter struct {
	Category string
	MinPrice float64
	MaxPrice float64
}

// Filter returns the products matching f, in catalog order. Categories compare
// case-insensitively and price bounds are inclusive.
func (s *Snapshot) Filter(f Filter) []*models.Product {
	out := make([]*models.Product, 0, len(s.products))
	for _, p := range s.products {
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if p.Price < f.MinPrice || (f.MaxPrice > 0 && p.Price > f.MaxPrice) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories returns the distinct categories, sorted.
func (s *Snapshot) Categories() []string {
	return s.categories
}

// Len returns the number of products.
func (s *Snapshot) Len() int {
	return len(s.products)
}

// Store holds the current catalog snapshot. Readers never block; Replace swaps the
// snapshot atomically and the last write wins.
type Store struct {
	current atomic.Pointer[Snapshot]
	logger  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for catalog data warnings.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a store holding the given products.
func NewStore(products []*models.Product, opts ...Option) (*Store, error) {
	s := &Store{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Replace(products); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns the current catalog.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Replace validates products and makes them the current catalog.
func (s *Store) Replace(products []*models.Product) error {
	if err := Validate(products); err != nil {
		return err
	}
	s.warnSaleFlags(products)
	s.current.Store(newSnapshot(products))
	return nil
}

// warnSaleFlags logs products whose sale flag disagrees with their prices. They are
// kept as given: ranking trusts the flag.
func (s *Store) warnSaleFlags(products []*models.Product) {
	for _, id := range InconsistentSaleFlags(products) {
		s.logger.Warn("sale flag disagrees with prices", zap.String("product", id))
	}
}

// InconsistentSaleFlags returns the ids of products whose IsOnSale flag disagrees
// with their recorded prices.
func InconsistentSaleFlags(products []*models.Product) []string {
	var ids []string
	for _, p := range products {
		if p != nil && !p.SaleFlagConsistent() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Products returns the current products in catalog order.
func (s *Store) Products() []*models.Product {
	return s.Snapshot().Products()
}

// Get returns a product from the current snapshot.
func (s *Store) Get(id string) (*models.Product, error) {
	return s.Snapshot().Get(id)
}

// Categories returns the current distinct categories.
func (s *Store) Categories() []string {
	return s.Snapshot().Categories()
}

// LoadFromStorage replaces the catalog with the stored products. An empty database
// leaves the catalog unchanged and reports false.
func (s *Store) LoadFromStorage(ctx context.Context, st storage.Storage) (bool, error) {
	products, err := st.ListProducts(ctx, 0, -1)
	if err != nil {
		return false, fmt.Errorf("failed to list stored products: %w", err)
	}
	if len(products) == 0 {
		return false, nil
	}
	if err := s.Replace(products); err != nil {
		return false, err
	}
	return true, nil
}

// ReloadFile loads a catalog file and imports it. On error the current catalog is kept.
func (s *Store) ReloadFile(ctx context.Context, st storage.Storage, path string) (int, error) {
	products, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	if err := s.Import(ctx, st, products); err != nil {
		return 0, err
	}
	return len(products), nil
}

// Import validates products, persists them when st is non-nil, and makes them current.
func (s *Store) Import(ctx context.Context, st storage.Storage, products []*models.Product) error {
	if err := Validate(products); err != nil {
		return err
	}
	s.warnSaleFlags(products)
	if st != nil {
		if err := st.ReplaceProducts(ctx, products); err != nil {
			return fmt.Errorf("failed to persist catalog: %w", err)
		}
	}
	s.current.Store(newSnapshot(products))
	return nil
}

// Delete removes a product from the catalog, and from st when it is non-nil.
func (s *Store) Delete(ctx context.Context, st storage.Storage, id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if st != nil {
		if err := st.DeleteProduct(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to delete stored product: %w", err)
		}
	}
	for {
		snap := s.current.Load()
		kept := make([]*models.Product, 0, snap.Len())
		for _, p := range snap.Products() {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		if s.current.CompareAndSwap(snap, newSnapshot(kept)) {
			return nil
		}
	}
}
