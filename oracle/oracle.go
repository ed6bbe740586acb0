// Package oracle adapts a language model into the two decisions the graph
// needs: which label acts next, and what a worker says or which tools it
// requests. The Adapter holds the contract: labels and tool names outside the
// offered sets are ContractViolations and transport failures are Unavailable.
package oracle

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/concierge/core/protocol"
)

// RouteRequest asks for a routing decision.
type RouteRequest struct {
	// Instruction is the system-level instruction.
	Instruction string
	// History is the conversation so far.
	History []protocol.Message
	// Question is appended after History as a final user turn.
	Question string
	// Labels is the closed set of permitted answers.
	Labels []string
}

// RespondRequest asks a worker persona for its next message.
type RespondRequest struct {
	Instruction string
	History     []protocol.Message
	Tools       []protocol.Tool
}

// Reply is the oracle's answer to a RespondRequest.
type Reply struct {
	Content   string
	ToolCalls []protocol.ToolCall
}

// Provider is a model backend. Implementations translate requests to their
// wire format and return raw, unvalidated output.
type Provider interface {
	Name() string
	Route(ctx context.Context, req RouteRequest) (string, error)
	Respond(ctx context.Context, req RespondRequest) (*Reply, error)
}

// Adapter enforces the oracle contract over a Provider.
type Adapter struct {
	provider Provider
	timeout  time.Duration
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		a.timeout = d
	}
}

// NewAdapter wraps a provider.
func NewAdapter(p Provider, opts ...AdapterOption) *Adapter {
	a := &Adapter{provider: p}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Provider returns the wrapped backend.
func (a *Adapter) Provider() Provider {
	return a.provider
}

// Decide returns a label from allowed. Anything else, including an empty or
// malformed answer, is a ContractViolation. The history is not modified.
func (a *Adapter) Decide(ctx context.Context, instruction, question string, history []protocol.Message, allowed []string) (string, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()

	raw, err := a.provider.Route(ctx, RouteRequest{
		Instruction: instruction,
		History:     history,
		Question:    question,
		Labels:      slices.Clone(allowed),
	})
	if err != nil {
		return "", a.classify(err)
	}

	label := strings.TrimSpace(raw)
	if !slices.Contains(allowed, label) {
		return "", &ContractViolation{Kind: KindLabel, Value: raw, Allowed: slices.Clone(allowed)}
	}
	return label, nil
}

// Respond returns the next worker message. Tool calls missing an id are
// assigned one. A request for a tool outside tools yields a
// ContractViolation that carries the reply.
func (a *Adapter) Respond(ctx context.Context, instruction string, history []protocol.Message, tools []protocol.Tool) (*Reply, error) {
	ctx, cancel := a.bound(ctx)
	defer cancel()

	reply, err := a.provider.Respond(ctx, RespondRequest{
		Instruction: instruction,
		History:     history,
		Tools:       tools,
	})
	if err != nil {
		return nil, a.classify(err)
	}
	if reply == nil {
		return nil, Violation("%s returned no reply", a.provider.Name())
	}

	for i := range reply.ToolCalls {
		if reply.ToolCalls[i].ID == "" {
			reply.ToolCalls[i].ID = "call_" + uuid.NewString()
		}
	}

	offered := protocol.ToolNames(tools)
	for _, call := range reply.ToolCalls {
		if !slices.Contains(offered, call.Name) {
			return reply, &ContractViolation{Kind: KindTool, Value: call.Name, Allowed: offered, Reply: reply}
		}
	}
	return reply, nil
}

func (a *Adapter) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout > 0 {
		return context.WithTimeout(ctx, a.timeout)
	}
	return context.WithCancel(ctx)
}

func (a *Adapter) classify(err error) error {
	var cv *ContractViolation
	if errors.As(err, &cv) {
		return cv
	}
	var un *Unavailable
	if errors.As(err, &un) {
		return un
	}
	return &Unavailable{Provider: a.provider.Name(), Err: err}
}
