// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/storefront/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		category TEXT NOT NULL,
		brand TEXT,
		price REAL NOT NULL,
		original_price REAL,
		rating REAL,
		review_count INTEGER,
		tags TEXT,
		in_stock INTEGER NOT NULL DEFAULT 1,
		is_on_sale INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_products_position ON products(position);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
	`
	_, err := db.Exec(schema)
	return err
}

const productColumns = `id, name, description, category, brand, price, original_price,
	rating, review_count, tags, in_stock, is_on_sale`

const upsertProduct = `INSERT INTO products (id, position, name, description, category, brand,
		price, original_price, rating, review_count, tags, in_stock, is_on_sale, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name, description = excluded.description, category = excluded.category,
		brand = excluded.brand, price = excluded.price, original_price = excluded.original_price,
		rating = excluded.rating, review_count = excluded.review_count, tags = excluded.tags,
		in_stock = excluded.in_stock, is_on_sale = excluded.is_on_sale, updated_at = excluded.updated_at`

// UpsertProducts inserts or updates products in a transaction. New products are
// appended after the existing ones; updated products keep their position.
func (s *SQLiteStorage) UpsertProducts(ctx context.Context, products []*models.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM products`).Scan(&next); err != nil {
		return err
	}
	if err := insertProducts(ctx, tx, products, next); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceProducts deletes every stored product and writes the given ones in order.
func (s *SQLiteStorage) ReplaceProducts(ctx context.Context, products []*models.Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return err
	}
	if err := insertProducts(ctx, tx, products, 0); err != nil {
		return err
	}
	return tx.Commit()
}

func insertProducts(ctx context.Context, tx *sql.Tx, products []*models.Product, position int64) error {
	stmt, err := tx.PrepareContext(ctx, upsertProduct)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for i, p := range products {
		tagsJSON, err := json.Marshal(p.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, position+int64(i), p.Name, p.Description, p.Category, p.Brand,
			p.Price, p.OriginalPrice, p.Rating, p.ReviewCount, string(tagsJSON),
			p.InStock, p.IsOnSale, now,
		); err != nil {
			return fmt.Errorf("failed to write product %s: %w", p.ID, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*models.Product, error) {
	var p models.Product
	var description, brand, tagsJSON sql.NullString
	var originalPrice, rating sql.NullFloat64
	var reviews sql.NullInt64

	if err := row.Scan(&p.ID, &p.Name, &description, &p.Category, &brand, &p.Price,
		&originalPrice, &rating, &reviews, &tagsJSON, &p.InStock, &p.IsOnSale); err != nil {
		return nil, err
	}
	p.Description = description.String
	p.Brand = brand.String
	p.OriginalPrice = originalPrice.Float64
	p.Rating = rating.Float64
	p.ReviewCount = int(reviews.Int64)

	if tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &p.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	return &p, nil
}

// GetProduct returns a product by ID.
func (s *SQLiteStorage) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts returns products in catalog order with offset and limit. A negative
// limit returns every product from offset on.
func (s *SQLiteStorage) ListProducts(ctx context.Context, offset, limit int) ([]*models.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY position LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// DeleteProduct removes a product by ID.
func (s *SQLiteStorage) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// CountProducts returns the total number of products.
func (s *SQLiteStorage) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
