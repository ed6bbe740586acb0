package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/concierge/store"
)

func open(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	seeded, err := s.Seed(context.Background())
	require.NoError(t, err)
	require.True(t, seeded)
	return s
}

func TestSeed_Idempotent(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	seeded, err := s.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	all, err := s.SearchProducts(ctx, "", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, len(store.SeedProducts))

	admin, err := s.GetUserByEmail(ctx, "ADMIN@shop.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Role)
}

func TestSearchProducts(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    string
		category string
		limit    int
		want     []string
	}{
		{name: "by name", query: "headphones", want: []string{"Premium Wireless Headphones"}},
		{name: "by description", query: "mesh", want: []string{"Ergonomic Office Chair"}},
		{name: "category", category: "electronics", limit: 2, want: []string{"Premium Wireless Headphones", "Smart Watch Series 7"}},
		{name: "query and category", query: "keyboard", category: "Furniture", want: nil},
		{name: "like wildcards are literal", query: "%", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := s.SearchProducts(ctx, tt.query, tt.category, tt.limit)
			require.NoError(t, err)

			var names []string
			for _, p := range products {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestGetProduct(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	p, err := s.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Premium Wireless Headphones", p.Name)
	assert.Equal(t, 299.99, p.Price)
	assert.Equal(t, 50, p.Stock)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = s.GetProduct(ctx, 999)
	assert.ErrorIs(t, err, store.ErrProductNotFound)
}

func TestCart(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	_, err := s.AddToCart(ctx, 42, 1, 1)
	require.NoError(t, err)
	item, err := s.AddToCart(ctx, 42, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity, "quantities merge")

	_, err = s.AddToCart(ctx, 42, 4, 1)
	require.NoError(t, err)

	items, err := s.CartItems(ctx, 42)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Premium Wireless Headphones", items[0].Product)
	assert.Equal(t, 3, items[0].Quantity)

	other, err := s.CartItems(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, other, "carts are per actor")

	require.NoError(t, s.RemoveFromCart(ctx, 42, 4))
	assert.ErrorIs(t, s.RemoveFromCart(ctx, 42, 4), store.ErrNotInCart)

	items, err = s.CartItems(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAddToCart_Errors(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	_, err := s.AddToCart(ctx, 42, 999, 1)
	assert.ErrorIs(t, err, store.ErrProductNotFound)

	_, err = s.AddToCart(ctx, 42, 1, 0)
	assert.ErrorIs(t, err, store.ErrInvalidQuantity)

	_, err = s.AddToCart(ctx, 42, 3, 21)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	_, err = s.AddToCart(ctx, 42, 3, 20)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, 42, 3, 1)
	assert.ErrorIs(t, err, store.ErrInsufficientStock, "merged quantity is checked")
}

func TestCreateOrder(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	_, err := s.AddToCart(ctx, 42, 1, 2)
	require.NoError(t, err)
	_, err = s.AddToCart(ctx, 42, 5, 1)
	require.NoError(t, err)

	order, err := s.CreateOrder(ctx, 42, "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, int64(42), order.UserID)
	assert.Equal(t, 645.48, order.TotalAmount)
	assert.Equal(t, "pending", order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 299.99, order.Items[0].PriceAtPurchase)

	items, err := s.CartItems(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, items, "cart cleared")

	p, err := s.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 48, p.Stock, "stock decremented")

	orders, err := s.Orders(ctx, 42)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestCreateOrder_Errors(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	_, err := s.CreateOrder(ctx, 42, "1 Main St")
	assert.ErrorIs(t, err, store.ErrCartEmpty)

	_, err = s.AddToCart(ctx, 42, 1, 1)
	require.NoError(t, err)
	_, err = s.CreateOrder(ctx, 42, "  ")
	assert.ErrorIs(t, err, store.ErrMissingAddress)

	orders, err := s.Orders(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUsers(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "New@Shop.com", "New Customer", "")
	require.NoError(t, err)
	assert.Equal(t, "new@shop.com", u.Email)
	assert.Equal(t, "customer", u.Role)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	_, err = s.CreateUser(ctx, "new@shop.com", "", "")
	assert.ErrorIs(t, err, store.ErrUserExists)

	_, err = s.GetUser(ctx, 999)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}
