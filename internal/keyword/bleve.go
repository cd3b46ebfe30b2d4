package keyword

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"

	"github.com/hyperjump/storefront/internal/models"
)

const (
	// textField holds the searchable text of one product.
	textField = "text"
	// termAnalyzer lowercases and splits on word boundaries. It keeps stop words so
	// words like "with" are never offered as corrections for something else.
	termAnalyzer = "catalog_terms"
)

// BleveDictionary implements TermDictionary over an in-memory Bleve index of a
// catalog. Terms and document frequencies are read from the index's field
// dictionary once, when the dictionary is built.
type BleveDictionary struct {
	index bleve.Index
	freq  map[string]int
	terms []string
}

// NewBleveDictionary indexes product names, descriptions, categories, brands, and
// tags in memory and loads the resulting term dictionary. Nil products are skipped.
func NewBleveDictionary(products []*models.Product) (*BleveDictionary, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(termAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = termAnalyzer
	textFieldMapping.Store = false
	textFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt(textField, textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}

	batch := index.NewBatch()
	for _, p := range products {
		if p == nil {
			continue
		}
		fields := append([]string{p.Name, p.Description, p.Category, p.Brand}, p.Tags...)
		doc := map[string]interface{}{textField: strings.Join(fields, " ")}
		if err := batch.Index(p.ID, doc); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index product %s: %w", p.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to index catalog: %w", err)
	}

	d := &BleveDictionary{index: index, freq: make(map[string]int)}
	if err := d.load(); err != nil {
		_ = index.Close()
		return nil, err
	}
	return d, nil
}

// load reads every term of the text field with the number of products containing it.
func (d *BleveDictionary) load() error {
	dict, err := d.index.FieldDict(textField)
	if err != nil {
		return fmt.Errorf("failed to read term dictionary: %w", err)
	}
	defer dict.Close()

	for {
		entry, err := dict.Next()
		if err != nil {
			return fmt.Errorf("failed to read term dictionary: %w", err)
		}
		if entry == nil {
			break
		}
		if entry.Count == 0 || len([]rune(entry.Term)) < minTermLen {
			continue
		}
		d.freq[entry.Term] = int(entry.Count)
	}

	d.terms = make([]string, 0, len(d.freq))
	for term := range d.freq {
		d.terms = append(d.terms, term)
	}
	sort.Strings(d.terms)
	return nil
}

// Terms returns all unique terms, sorted.
func (d *BleveDictionary) Terms() []string {
	return d.terms
}

// Frequency returns the number of products containing term.
func (d *BleveDictionary) Frequency(term string) int {
	return d.freq[strings.ToLower(term)]
}

// Contains reports whether term occurs in the catalog.
func (d *BleveDictionary) Contains(term string) bool {
	_, ok := d.freq[strings.ToLower(term)]
	return ok
}

// Len returns the number of unique terms.
func (d *BleveDictionary) Len() int {
	return len(d.terms)
}

// DocCount returns the number of indexed products.
func (d *BleveDictionary) DocCount() (uint64, error) {
	return d.index.DocCount()
}

// Close releases the index.
func (d *BleveDictionary) Close() error {
	return d.index.Close()
}
