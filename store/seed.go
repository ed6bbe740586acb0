package store

import (
	"context"
	"fmt"
)

// SeedUsers and SeedProducts are the demo data installed by Seed.
var (
	SeedUsers = []User{
		{Email: "admin@shop.com", FullName: "System Admin", Role: "admin"},
		{Email: "user@shop.com", FullName: "John Doe", Role: "customer"},
	}

	SeedProducts = []Product{
		{Name: "Premium Wireless Headphones", Description: "Noise-cancelling, 40h battery life.", Price: 299.99, Stock: 50, Category: "Electronics", ImageURL: "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=500"},
		{Name: "Smart Watch Series 7", Description: "Water-resistant, health tracking.", Price: 349.99, Stock: 30, Category: "Electronics", ImageURL: "https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=500"},
		{Name: "Ergonomic Office Chair", Description: "Breathable mesh, adjustable height.", Price: 189.99, Stock: 20, Category: "Furniture", ImageURL: "https://images.unsplash.com/photo-1505744386214-51dba16a26fc?w=500"},
		{Name: "Mechanical Keyboard", Description: "RGB backlit, blue switches.", Price: 89.99, Stock: 100, Category: "Electronics", ImageURL: "https://images.unsplash.com/photo-1511467687858-23d96c32e4ae?w=500"},
		{Name: "Minimalist Desk Lamp", Description: "Eye-care LED, dimmable levels.", Price: 45.50, Stock: 40, Category: "Home", ImageURL: "https://images.unsplash.com/photo-1534073828943-f801091bb18c?w=500"},
	}
)

// Seed installs the demo users and catalog. It does nothing when the
// catalog already has products, and reports whether it seeded.
func (s *Store) Seed(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	for _, u := range SeedUsers {
		if _, err := s.GetUserByEmail(ctx, u.Email); err == nil {
			continue
		}
		if _, err := s.CreateUser(ctx, u.Email, u.FullName, u.Role); err != nil {
			return false, err
		}
	}

	for _, p := range SeedProducts {
		if _, err := s.CreateProduct(ctx, p); err != nil {
			return false, err
		}
	}
	return true, nil
}
