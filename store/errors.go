package store

import "errors"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCartEmpty         = errors.New("cart is empty")
	ErrNotInCart         = errors.New("product is not in the cart")
	ErrMissingAddress    = errors.New("shipping address is required")
)
