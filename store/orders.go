package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CreateOrder turns the user's cart into an order. Line prices are
// snapshotted, stock is decremented, and the cart is cleared, all in one
// transaction.
func (s *Store) CreateOrder(ctx context.Context, userID int64, shippingAddress string) (Order, error) {
	address := strings.TrimSpace(shippingAddress)
	if address == "" {
		return Order{}, ErrMissingAddress
	}

	var order Order
	err := s.tx(ctx, func(tx *sql.Tx) error {
		items, err := cartItems(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrCartEmpty
		}

		var total float64
		for _, it := range items {
			total += it.UnitPrice * float64(it.Quantity)
		}
		total = roundCents(total)

		res, err := tx.ExecContext(ctx,
			`INSERT INTO orders (user_id, total_amount, shipping_address) VALUES (?, ?, ?)`,
			userID, total, address)
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		orderID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for _, it := range items {
			res, err := tx.ExecContext(ctx,
				`UPDATE products SET stock_quantity = stock_quantity - ? WHERE id = ? AND stock_quantity >= ?`,
				it.Quantity, it.ProductID, it.Quantity)
			if err != nil {
				return fmt.Errorf("failed to update stock: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, it.Product)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase) VALUES (?, ?, ?, ?)`,
				orderID, it.ProductID, it.Quantity, it.UnitPrice); err != nil {
				return fmt.Errorf("failed to add order item: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		order, err = getOrder(ctx, tx, orderID)
		return err
	})
	return order, err
}

// Orders lists the user's orders, newest first.
func (s *Store) Orders(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM orders WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orders := make([]Order, 0, len(ids))
	for _, id := range ids {
		o, err := getOrder(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

type rowQuerier interface {
	querier
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getOrder(ctx context.Context, q rowQuerier, id int64) (Order, error) {
	var o Order
	err := q.QueryRowContext(ctx,
		`SELECT id, user_id, total_amount, status, shipping_address, created_at FROM orders WHERE id = ?`, id).
		Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.ShippingAddress, &o.CreatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("failed to get order %d: %w", id, err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT i.product_id, p.name, i.quantity, i.price_at_purchase
		FROM order_items i JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ?
		ORDER BY i.id`, id)
	if err != nil {
		return Order{}, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	o.Items = []OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.Product, &it.Quantity, &it.PriceAtPurchase); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}
