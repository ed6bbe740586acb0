// Package mock provides a scripted oracle provider. Routing answers and
// worker replies are consumed in order from separate queues.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/tailored-agentic-units/concierge/core/protocol"
	"github.com/tailored-agentic-units/concierge/oracle"
)

// ErrExhausted is returned when the script has no answer left.
var ErrExhausted = errors.New("mock script exhausted")

type routeStep struct {
	label string
	err   error
}

type replyStep struct {
	reply *oracle.Reply
	err   error
}

// Provider is a scripted oracle.Provider. It is safe for concurrent use.
type Provider struct {
	mu       sync.Mutex
	routes   []routeStep
	replies  []replyStep
	routeLog []oracle.RouteRequest
	replyLog []oracle.RespondRequest
}

var _ oracle.Provider = (*Provider)(nil)

// New creates an empty script.
func New() *Provider {
	return &Provider{}
}

// Routes queues one routing answer per label.
func (p *Provider) Routes(labels ...string) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range labels {
		p.routes = append(p.routes, routeStep{label: l})
	}
	return p
}

// RouteError queues a routing failure.
func (p *Provider) RouteError(err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes = append(p.routes, routeStep{err: err})
	return p
}

// Text queues a plain worker reply.
func (p *Provider) Text(content string) *Provider {
	return p.Reply(&oracle.Reply{Content: content})
}

// Tools queues a worker reply that requests the given tool calls.
func (p *Provider) Tools(calls ...protocol.ToolCall) *Provider {
	return p.Reply(&oracle.Reply{ToolCalls: calls})
}

// Reply queues a worker reply.
func (p *Provider) Reply(r *oracle.Reply) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = append(p.replies, replyStep{reply: r})
	return p
}

// ReplyError queues a worker failure.
func (p *Provider) ReplyError(err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = append(p.replies, replyStep{err: err})
	return p
}

func (p *Provider) Name() string {
	return "mock"
}

func (p *Provider) Route(ctx context.Context, req oracle.RouteRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.routeLog = append(p.routeLog, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(p.routes) == 0 {
		return "", ErrExhausted
	}

	step := p.routes[0]
	p.routes = p.routes[1:]
	return step.label, step.err
}

func (p *Provider) Respond(ctx context.Context, req oracle.RespondRequest) (*oracle.Reply, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.replyLog = append(p.replyLog, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(p.replies) == 0 {
		return nil, ErrExhausted
	}

	step := p.replies[0]
	p.replies = p.replies[1:]
	if step.err != nil {
		return nil, step.err
	}

	reply := *step.reply
	reply.ToolCalls = append([]protocol.ToolCall(nil), step.reply.ToolCalls...)
	return &reply, nil
}

// RouteRequests returns the routing requests received so far.
func (p *Provider) RouteRequests() []oracle.RouteRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]oracle.RouteRequest(nil), p.routeLog...)
}

// RespondRequests returns the worker requests received so far.
func (p *Provider) RespondRequests() []oracle.RespondRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]oracle.RespondRequest(nil), p.replyLog...)
}

// Pending reports how many scripted routes and replies are unused.
func (p *Provider) Pending() (routes, replies int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.routes), len(p.replies)
}

// Call builds a tool call for scripts.
func Call(id, name, arguments string) protocol.ToolCall {
	return protocol.ToolCall{ID: id, Name: name, Arguments: arguments}
}
