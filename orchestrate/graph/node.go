package graph

import (
	"context"

	"github.com/tailored-agentic-units/concierge/session"
)

// Node is one step of the graph. Nodes read and append to the shared
// session; they never replace it.
type Node interface {
	Execute(ctx context.Context, sess session.Session) error
}

// NodeFunc adapts a function to the Node interface.
type NodeFunc func(ctx context.Context, sess session.Session) error

// Execute calls f.
func (f NodeFunc) Execute(ctx context.Context, sess session.Session) error {
	return f(ctx, sess)
}
