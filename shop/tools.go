// Package shop provides the storefront capabilities and the default crew
// that uses them.
package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/tailored-agentic-units/concierge/store"
	"github.com/tailored-agentic-units/concierge/tools"
)

// Capability names.
const (
	SearchProducts tools.Name = "search_products"
	AddToCart      tools.Name = "add_to_cart"
	ViewCart       tools.Name = "view_cart"
	RemoveFromCart tools.Name = "remove_from_cart"
	Checkout       tools.Name = "checkout"
	ListOrders     tools.Name = "list_orders"
)

// ActorParam carries the acting user into every cart and order tool.
const ActorParam = "user_id"

// SearchLimit caps the products returned to the model.
const SearchLimit = 20

// Commerce is the data layer the capabilities run against. *store.Store
// satisfies it.
type Commerce interface {
	SearchProducts(ctx context.Context, query, category string, limit int) ([]store.Product, error)
	AddToCart(ctx context.Context, userID, productID int64, quantity int) (store.CartItem, error)
	CartItems(ctx context.Context, userID int64) ([]store.CartItem, error)
	RemoveFromCart(ctx context.Context, userID, productID int64) error
	CreateOrder(ctx context.Context, userID int64, shippingAddress string) (store.Order, error)
	Orders(ctx context.Context, userID int64) ([]store.Order, error)
}

// Tools builds the capability registry over c.
func Tools(c Commerce) (*tools.Registry, error) {
	if c == nil {
		return nil, errors.New("shop: commerce backend is nil")
	}
	h := handlers{c: c}

	productSchema := func() *openapi3.Schema {
		s := openapi3.NewObjectSchema().
			WithProperty("product_id", describe(openapi3.NewInt64Schema().WithMin(1), "Catalog id of the product"))
		s.Required = []string{"product_id"}
		return s
	}

	search := openapi3.NewObjectSchema().
		WithProperty("query", describe(openapi3.NewStringSchema(), "Words to match against product names and descriptions")).
		WithProperty("category", describe(openapi3.NewStringSchema(), "Optional category, e.g. Electronics"))
	search.Required = []string{"query"}

	add := productSchema().
		WithProperty("quantity", describe(openapi3.NewIntegerSchema().WithMin(1), "Units to add, default 1"))

	checkout := openapi3.NewObjectSchema().
		WithProperty("shipping_address", describe(openapi3.NewStringSchema().WithMinLength(1), "Full delivery address"))
	checkout.Required = []string{"shipping_address"}

	return tools.NewRegistry(
		tools.Tool{
			Name:        SearchProducts,
			Description: "Search the product catalog by keyword and optional category.",
			Schema:      search,
			Executor:    h.search,
		},
		tools.Tool{
			Name:        AddToCart,
			Description: "Add a product to the user's shopping cart.",
			Schema:      add,
			ActorParam:  ActorParam,
			Executor:    h.add,
		},
		tools.Tool{
			Name:        ViewCart,
			Description: "Show the contents of the user's shopping cart.",
			Schema:      openapi3.NewObjectSchema(),
			ActorParam:  ActorParam,
			Executor:    h.view,
		},
		tools.Tool{
			Name:        RemoveFromCart,
			Description: "Remove a product from the user's shopping cart.",
			Schema:      productSchema(),
			ActorParam:  ActorParam,
			Executor:    h.remove,
		},
		tools.Tool{
			Name:        Checkout,
			Description: "Place an order for everything in the user's cart.",
			Schema:      checkout,
			ActorParam:  ActorParam,
			Executor:    h.checkout,
		},
		tools.Tool{
			Name:        ListOrders,
			Description: "List the user's past orders, newest first.",
			Schema:      openapi3.NewObjectSchema(),
			ActorParam:  ActorParam,
			Executor:    h.orders,
		},
	)
}

type handlers struct {
	c Commerce
}

type searchArgs struct {
	Query    string `json:"query"`
	Category string `json:"category"`
}

type productArgs struct {
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type checkoutArgs struct {
	UserID          int64  `json:"user_id"`
	ShippingAddress string `json:"shipping_address"`
}

type actorArgs struct {
	UserID int64 `json:"user_id"`
}

type productSummary struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

func (h handlers) search(ctx context.Context, args tools.Args) (tools.Result, error) {
	var a searchArgs
	if err := tools.Decode(args, &a); err != nil {
		return tools.Result{}, err
	}

	products, err := h.c.SearchProducts(ctx, a.Query, a.Category, SearchLimit)
	if err != nil {
		return tools.Result{}, err
	}
	if len(products) == 0 {
		return tools.Result{Content: fmt.Sprintf("No products match %q.", a.Query)}, nil
	}

	summaries := make([]productSummary, len(products))
	for i, p := range products {
		summaries[i] = productSummary{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock}
	}
	return jsonResult(summaries)
}

func (h handlers) add(ctx context.Context, args tools.Args) (tools.Result, error) {
	var a productArgs
	if err := tools.Decode(args, &a); err != nil {
		return tools.Result{}, err
	}
	if a.Quantity == 0 {
		a.Quantity = 1
	}

	if _, err := h.c.AddToCart(ctx, a.UserID, a.ProductID, a.Quantity); err != nil {
		return failure("Error adding to cart", err)
	}
	return tools.Result{Content: fmt.Sprintf("Successfully added product %d to cart.", a.ProductID)}, nil
}

func (h handlers) view(ctx context.Context, args tools.Args) (tools.Result, error) {
	var a actorArgs
	if err := tools.Decode(args, &a); err != nil {
		return tools.Result{}, err
	}

	items, err := h.c.CartItems(ctx, a.UserID)
	if err != nil {
		return tools.Result{}, err
	}
	if len(items) == 0 {
		return tools.Result{Content: "Your cart is empty."}, nil
	}
	return jsonResult(items)
}

func (h handlers) remove(ctx context.Context, args tools.Args) (tools.Result, error) {
	var a productArgs
	if err := tools.Decode(args, &a); err != nil {
		return tools.Result{}, err
	}

	if err := h.c.RemoveFromCart(ctx, a.UserID, a.ProductID); err != nil {
		return failure("Error removing from cart", err)
	}
	return tools.Result{Content: fmt.Sprintf("Removed product %d from cart.", a.ProductID)}, nil
}

func (h handlers) checkout(ctx context.Context, args tools.Args) (tools.Result, error) {
	var a checkoutArgs
	if err := tools.Decode(args, &a); err != nil {
		return tools.Result{}, err
	}

	order, err := h.c.CreateOrder(ctx, a.UserID, a.ShippingAddress)
	if err != nil {
		return failure("Checkout failed", err)
	}
	return tools.Result{
		Content: fmt.Sprintf("Order placed successfully! Order ID: %d, Total: $%.2f", order.ID, order.TotalAmount),
	}, nil
}

func (h handlers) orders(ctx context.Context, args tools.Args) (tools.Result, error) {
	var a actorArgs
	if err := tools.Decode(args, &a); err != nil {
		return tools.Result{}, err
	}

	orders, err := h.c.Orders(ctx, a.UserID)
	if err != nil {
		return tools.Result{}, err
	}
	if len(orders) == 0 {
		return tools.Result{Content: "You have no orders yet."}, nil
	}
	return jsonResult(orders)
}

// domainErrors are reported to the model as error results. Anything else
// fails the executor.
var domainErrors = []error{
	store.ErrProductNotFound,
	store.ErrInvalidQuantity,
	store.ErrInsufficientStock,
	store.ErrCartEmpty,
	store.ErrNotInCart,
	store.ErrMissingAddress,
}

func failure(prefix string, err error) (tools.Result, error) {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return tools.Result{Content: fmt.Sprintf("%s: %v.", prefix, err), IsError: true}, nil
		}
	}
	return tools.Result{}, err
}

func describe(s *openapi3.Schema, description string) *openapi3.Schema {
	s.Description = description
	return s
}

func jsonResult(v any) (tools.Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return tools.Result{}, fmt.Errorf("failed to encode result: %w", err)
	}
	return tools.Result{Content: string(data)}, nil
}
