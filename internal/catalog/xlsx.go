package catalog

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/storefront/internal/models"
)

// Header names recognised in the first row of an import sheet. Columns may appear in any
// order; only name, price, and category are required.
const (
	colID            = "id"
	colName          = "name"
	colDescription   = "description"
	colCategory      = "category"
	colBrand         = "brand"
	colPrice         = "price"
	colOriginalPrice = "original_price"
	colRating        = "rating"
	colReviews       = "reviews"
	colTags          = "tags"
	colInStock       = "in_stock"
	colOnSale        = "on_sale"
)

// ImportXLSX reads products from the first sheet of an .xlsx file.
func ImportXLSX(path string) ([]*models.Product, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return importWorkbook(f)
}

// ReadXLSX reads products from an .xlsx stream.
func ReadXLSX(r io.Reader) ([]*models.Product, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return importWorkbook(f)
}

func importWorkbook(f *excelize.File) ([]*models.Product, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colName, colPrice, colCategory} {
		if _, ok := header[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var products []*models.Product
	for n, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		line := n + 2
		cell := func(col string) string {
			i, ok := header[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		p := &models.Product{
			ID:          cell(colID),
			Name:        cell(colName),
			Description: cell(colDescription),
			Category:    cell(colCategory),
			Brand:       cell(colBrand),
			Tags:        splitTags(cell(colTags)),
			InStock:     true,
		}
		if p.ID == "" {
			p.ID = "bulk-" + strconv.Itoa(len(products))
		}
		if p.Price, err = parseFloat(cell(colPrice)); err != nil {
			return nil, fmt.Errorf("row %d: price: %w", line, err)
		}
		if p.OriginalPrice, err = parseFloat(cell(colOriginalPrice)); err != nil {
			return nil, fmt.Errorf("row %d: original_price: %w", line, err)
		}
		if p.Rating, err = parseFloat(cell(colRating)); err != nil {
			return nil, fmt.Errorf("row %d: rating: %w", line, err)
		}
		if v := cell(colReviews); v != "" {
			if p.ReviewCount, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("row %d: reviews: %w", line, err)
			}
		}
		if v := cell(colInStock); v != "" {
			if p.InStock, err = strconv.ParseBool(v); err != nil {
				return nil, fmt.Errorf("row %d: in_stock: %w", line, err)
			}
		}
		if v := cell(colOnSale); v != "" {
			if p.IsOnSale, err = strconv.ParseBool(v); err != nil {
				return nil, fmt.Errorf("row %d: on_sale: %w", line, err)
			}
		}
		products = append(products, p)
	}

	if err := Validate(products); err != nil {
		return nil, err
	}
	return products, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.TrimPrefix(s, "$"), 64)
}

// splitTags splits a `;`-separated tag cell.
func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ";") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
