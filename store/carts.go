package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AddToCart adds quantity of a product to the user's cart, merging with an
// existing line. The resulting line may not exceed the product's stock.
func (s *Store) AddToCart(ctx context.Context, userID, productID int64, quantity int) (CartItem, error) {
	if quantity <= 0 {
		return CartItem{}, ErrInvalidQuantity
	}

	var item CartItem
	err := s.tx(ctx, func(tx *sql.Tx) error {
		var name string
		var price float64
		var stock int
		err := tx.QueryRowContext(ctx, `SELECT name, price, stock_quantity FROM products WHERE id = ?`, productID).
			Scan(&name, &price, &stock)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
		}
		if err != nil {
			return fmt.Errorf("failed to get product: %w", err)
		}

		var current int
		err = tx.QueryRowContext(ctx, `SELECT quantity FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID).
			Scan(&current)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read cart: %w", err)
		}

		if current+quantity > stock {
			return fmt.Errorf("%w: %s has %d available", ErrInsufficientStock, name, stock)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO cart_items (user_id, product_id, quantity) VALUES (?, ?, ?)
			ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = quantity + excluded.quantity`,
			userID, productID, quantity)
		if err != nil {
			return fmt.Errorf("failed to add to cart: %w", err)
		}

		item = CartItem{ProductID: productID, Product: name, Quantity: current + quantity, UnitPrice: price}
		return nil
	})
	return item, err
}

// CartItems lists the user's cart in insertion order.
func (s *Store) CartItems(ctx context.Context, userID int64) ([]CartItem, error) {
	return cartItems(ctx, s.db, userID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func cartItems(ctx context.Context, q querier, userID int64) ([]CartItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.product_id, p.name, c.quantity, p.price
		FROM cart_items c JOIN products p ON p.id = c.product_id
		WHERE c.user_id = ?
		ORDER BY c.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	defer rows.Close()

	items := []CartItem{}
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ProductID, &it.Product, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// RemoveFromCart deletes the product's line from the user's cart.
func (s *Store) RemoveFromCart(ctx context.Context, userID, productID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotInCart, productID)
	}
	return nil
}
