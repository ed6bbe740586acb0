package shop

import (
	"github.com/tailored-agentic-units/concierge/nodes"
	"github.com/tailored-agentic-units/concierge/tools"
)

// Worker labels of the default crew.
const (
	ProductSearch nodes.Label = "ProductSearch"
	CartManager   nodes.Label = "CartManager"
)

// Crew returns the default storefront workers. ProductSearch is limited to
// the catalog; CartManager holds every actor-bound capability.
func Crew() []nodes.Role {
	return []nodes.Role{
		{
			Name:        ProductSearch,
			Description: "to help users find items in the catalog.",
			Instruction: "You are a product search expert for our e-commerce store. Help users find exactly what they need.",
			Tools:       []tools.Name{SearchProducts},
		},
		{
			Name:        CartManager,
			Description: "for anything involving the shopping cart, viewing items, or checkout.",
			Instruction: "You are the Cart Manager for User #" + nodes.ActorPlaceholder +
				". Help them manage their selection and complete their purchase.",
			Tools: []tools.Name{AddToCart, ViewCart, RemoveFromCart, Checkout, ListOrders},
		},
	}
}
