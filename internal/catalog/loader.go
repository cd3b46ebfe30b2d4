// Package catalog loads, validates, and serves immutable product catalog snapshots.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/storefront/internal/models"
)

//go:embed fixtures/products.yaml
var defaultFixtures []byte

// ErrDuplicateID is returned when two products share an id.
var ErrDuplicateID = errors.New("duplicate product id")

// ErrUnsupportedFormat is returned for catalog files that are neither YAML nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

type fixtureFile struct {
	Products []*models.Product `yaml:"products"`
}

var validate = validator.New()

// DefaultProducts returns the built-in seed catalog.
func DefaultProducts() []*models.Product {
	products, err := ParseYAML(bytes.NewReader(defaultFixtures))
	if err != nil {
		panic(fmt.Sprintf("embedded fixtures are invalid: %v", err))
	}
	return products
}

// ParseYAML reads a `products:` list and validates it.
func ParseYAML(r io.Reader) ([]*models.Product, error) {
	var f fixtureFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := Validate(f.Products); err != nil {
		return nil, err
	}
	return f.Products, nil
}

// LoadFile reads a catalog from a .yaml, .yml, or .xlsx file.
func LoadFile(path string) ([]*models.Product, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		defer f.Close()
		return ParseYAML(f)
	case ".xlsx":
		return ImportXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// WriteYAML writes products in the fixture format.
func WriteYAML(w io.Writer, products []*models.Product) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fixtureFile{Products: products}); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return enc.Close()
}

// Validate checks every product's fields and that ids are unique.
func Validate(products []*models.Product) error {
	seen := make(map[string]bool, len(products))
	for i, p := range products {
		if p == nil {
			return fmt.Errorf("product %d: empty entry", i)
		}
		if err := validate.Struct(p); err != nil {
			return fmt.Errorf("product %d (%s): %w", i, p.ID, err)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
