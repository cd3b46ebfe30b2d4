package catalog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hyperjump/storefront/internal/models"
	"github.com/hyperjump/storefront/internal/storage"
)

func TestDefaultProducts(t *testing.T) {
	products := DefaultProducts()
	if len(products) != 6 {
		t.Fatalf("expected 6 seed products, got %d", len(products))
	}
	if products[0].Name != "Wireless Bluetooth Headphones" || !products[0].IsOnSale {
		t.Errorf("unexpected first product %+v", products[0])
	}
	for _, p := range products {
		if !p.SaleFlagConsistent() {
			t.Errorf("seed product %s has inconsistent sale flag", p.ID)
		}
	}
}

func TestParseYAML_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"missing name", "products:\n  - id: a\n    category: X\n", "Name"},
		{"bad rating", "products:\n  - id: a\n    name: A\n    category: X\n    rating: 7\n", "Rating"},
		{"duplicate", "products:\n  - {id: a, name: A, category: X}\n  - {id: a, name: B, category: X}\n", "duplicate"},
		{"unknown field", "products:\n  - {id: a, name: A, category: X, colour: red}\n", "colour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML(strings.NewReader(tt.input))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ParseYAML() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, DefaultProducts()); err != nil {
		t.Fatal(err)
	}
	got, err := ParseYAML(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, DefaultProducts()) {
		t.Error("round trip changed the catalog")
	}
}

func writeWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestImportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bulk.xlsx")
	writeWorkbook(t, path, [][]any{
		{"name", "description", "price", "category", "tags", "on_sale", "original_price"},
		{"Bamboo Toothbrush", "Biodegradable handle", "4.99", "Home & Garden", "eco; bathroom", "false", ""},
		{},
		{"Trail Socks", "Merino wool", "$14.50", "Sports", "hiking", "true", "19.99"},
	})

	products, err := ImportXLSX(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].ID != "bulk-0" || products[1].ID != "bulk-1" {
		t.Errorf("expected generated ids, got %s and %s", products[0].ID, products[1].ID)
	}
	if !reflect.DeepEqual(products[0].Tags, []string{"eco", "bathroom"}) {
		t.Errorf("unexpected tags %v", products[0].Tags)
	}
	if products[1].Price != 14.5 || !products[1].IsOnSale || products[1].OriginalPrice != 19.99 {
		t.Errorf("unexpected product %+v", products[1])
	}
	if !products[0].InStock {
		t.Error("expected in_stock to default to true")
	}
}

func TestImportXLSX_Errors(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.xlsx")
	writeWorkbook(t, missing, [][]any{{"name", "price"}, {"A", "1"}})
	if _, err := ImportXLSX(missing); err == nil || !strings.Contains(err.Error(), "category") {
		t.Errorf("expected missing column error, got %v", err)
	}

	badPrice := filepath.Join(dir, "price.xlsx")
	writeWorkbook(t, badPrice, [][]any{{"name", "price", "category"}, {"A", "cheap", "X"}})
	if _, err := ImportXLSX(badPrice); err == nil || !strings.Contains(err.Error(), "row 2") {
		t.Errorf("expected row error, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yml")
	if err := os.WriteFile(path, []byte("products:\n  - {id: a, name: A, category: X, price: 1}\n"), 0600); err != nil {
		t.Fatal(err)
	}

	products, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 || products[0].ID != "a" {
		t.Errorf("unexpected products %+v", products)
	}

	if _, err := LoadFile(filepath.Join(dir, "catalog.csv")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestStore(t *testing.T) {
	store, err := NewStore(DefaultProducts())
	if err != nil {
		t.Fatal(err)
	}

	p, err := store.Get("3")
	if err != nil || p.Name != "Smart Home Security Camera" {
		t.Errorf("Get(3) = %+v, %v", p, err)
	}
	if _, err := store.Get("nope"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
	if got := store.Categories(); !reflect.DeepEqual(got, []string{"Electronics", "Fashion", "Home & Garden", "Sports"}) {
		t.Errorf("unexpected categories %v", got)
	}
	if got := store.Snapshot().GetMany([]string{"6", "x", "1"}); len(got) != 2 || got[0].ID != "6" {
		t.Errorf("unexpected GetMany result %+v", got)
	}

	old := store.Snapshot()
	if err := store.Replace([]*models.Product{{ID: "n", Name: "New", Category: "X"}}); err != nil {
		t.Fatal(err)
	}
	if old.Len() != 6 || store.Snapshot().Len() != 1 {
		t.Error("expected replace to leave the old snapshot intact")
	}

	if err := store.Replace([]*models.Product{{ID: "bad"}}); err == nil {
		t.Error("expected validation error")
	}
	if store.Snapshot().Len() != 1 {
		t.Error("failed replace should keep the current snapshot")
	}
}

func TestStore_CopiesInput(t *testing.T) {
	products := DefaultProducts()
	store, _ := NewStore(products)
	products[0].Name = "changed"
	products[0].Tags[0] = "changed"

	p, _ := store.Get("1")
	if p.Name == "changed" || p.Tags[0] == "changed" {
		t.Error("store shares memory with its input")
	}
}

func TestStore_Storage(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	store, _ := NewStore(DefaultProducts())
	loaded, err := store.LoadFromStorage(ctx, st)
	if err != nil || loaded {
		t.Errorf("expected empty database to leave catalog unchanged, got %v, %v", loaded, err)
	}

	imported := []*models.Product{{ID: "x1", Name: "Imported", Category: "X", Price: 5, InStock: true}}
	if err := store.Import(ctx, st, imported); err != nil {
		t.Fatal(err)
	}
	if store.Snapshot().Len() != 1 {
		t.Errorf("expected imported catalog, got %d products", store.Snapshot().Len())
	}

	fresh, _ := NewStore(DefaultProducts())
	loaded, err = fresh.LoadFromStorage(ctx, st)
	if err != nil || !loaded {
		t.Fatalf("LoadFromStorage = %v, %v", loaded, err)
	}
	if p, err := fresh.Get("x1"); err != nil || p.Name != "Imported" {
		t.Errorf("expected stored product, got %+v, %v", p, err)
	}
}

func TestStore_ReloadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("products:\n  - {id: r1, name: Reloaded, category: X, price: 3}\n"), 0600); err != nil {
		t.Fatal(err)
	}

	store, _ := NewStore(DefaultProducts())
	n, err := store.ReloadFile(context.Background(), nil, path)
	if err != nil || n != 1 {
		t.Fatalf("ReloadFile = %d, %v", n, err)
	}
	if _, err := store.Get("r1"); err != nil {
		t.Error("expected reloaded product")
	}

	if err := os.WriteFile(path, []byte("products:\n  - {id: r1}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := store.ReloadFile(context.Background(), nil, path); err == nil {
		t.Error("expected validation error")
	}
	if _, err := store.Get("r1"); err != nil {
		t.Error("expected the previous catalog to be kept after a failed reload")
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	store, _ := NewStore(nil)
	if err := store.Import(ctx, st, DefaultProducts()); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(ctx, st, "3"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get("3"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected deleted product to be gone, got %v", err)
	}
	if store.Snapshot().Len() != 5 {
		t.Errorf("expected 5 products, got %d", store.Snapshot().Len())
	}
	if _, err := st.GetProduct(ctx, "3"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected deleted product to be gone from storage, got %v", err)
	}

	if err := store.Delete(ctx, st, "3"); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
	if err := store.Delete(ctx, nil, "1"); err != nil {
		t.Errorf("delete without storage: %v", err)
	}
}

func TestStore_WarnsOnInconsistentSaleFlag(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	products := []*models.Product{
		{ID: "ok", Name: "Marked Down", Category: "X", Price: 5, OriginalPrice: 8, IsOnSale: true},
		{ID: "flag-only", Name: "Flag Only", Category: "X", Price: 5, IsOnSale: true},
		{ID: "price-only", Name: "Price Only", Category: "X", Price: 5, OriginalPrice: 8},
	}

	if got := InconsistentSaleFlags(products); !reflect.DeepEqual(got, []string{"flag-only", "price-only"}) {
		t.Errorf("InconsistentSaleFlags = %v", got)
	}

	store, err := NewStore(products, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatal(err)
	}
	if store.Snapshot().Len() != 3 {
		t.Error("expected inconsistent products to be kept")
	}
	entries := logs.FilterMessage("sale flag disagrees with prices").All()
	if len(entries) != 2 || entries[0].ContextMap()["product"] != "flag-only" {
		t.Errorf("unexpected warnings %+v", entries)
	}
}
