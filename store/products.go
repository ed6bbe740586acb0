package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// DefaultSearchLimit caps SearchProducts when no limit is given.
const DefaultSearchLimit = 100

const productColumns = `id, name, description, price, stock_quantity, category, image_url, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.ImageURL, &p.CreatedAt)
	return p, err
}

// SearchProducts matches query against name and description, case
// insensitively, optionally restricted to a category. Blank arguments match
// everything.
func (s *Store) SearchProducts(ctx context.Context, query, category string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(query); q != "" {
		where = append(where, `(name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(q) + "%"
		args = append(args, pattern, pattern)
	}
	if c := strings.TrimSpace(category); c != "" {
		where = append(where, `category = ? COLLATE NOCASE`)
		args = append(args, c)
	}

	stmt := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		stmt += ` WHERE ` + strings.Join(where, " AND ")
	}
	stmt += ` ORDER BY id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *Store) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	if err != nil {
		return Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// CreateProduct inserts p and returns it with its id.
func (s *Store) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if strings.TrimSpace(p.Name) == "" {
		return Product{}, fmt.Errorf("product name is required")
	}
	if p.Stock < 0 {
		return Product{}, ErrInvalidQuantity
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, description, price, stock_quantity, category, image_url) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, roundCents(p.Price), p.Stock, p.Category, p.ImageURL)
	if err != nil {
		return Product{}, fmt.Errorf("failed to create product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Product{}, err
	}
	return s.GetProduct(ctx, id)
}
