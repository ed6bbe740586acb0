package mcpserver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/concierge/kernel"
	"github.com/tailored-agentic-units/concierge/mcpserver"
	"github.com/tailored-agentic-units/concierge/observability"
	"github.com/tailored-agentic-units/concierge/oracle"
	"github.com/tailored-agentic-units/concierge/oracle/mock"
	"github.com/tailored-agentic-units/concierge/shop"
	"github.com/tailored-agentic-units/concierge/store"
)

func newKernel(t *testing.T, script *mock.Provider) *kernel.Kernel {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	_, err = s.Seed(context.Background())
	require.NoError(t, err)

	reg, err := shop.Tools(s)
	require.NoError(t, err)

	cfg := kernel.DefaultConfig()
	cfg.Graph.Observer = "noop"
	k, err := kernel.New(&cfg,
		kernel.WithRegistry(reg),
		kernel.WithCrew(shop.Crew()),
		kernel.WithAdapter(oracle.NewAdapter(script)),
		kernel.WithLogger(observability.NewNopLogger()))
	require.NoError(t, err)
	return k
}

func request(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	content, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return content.Text
}

func TestNew_RequiresActor(t *testing.T) {
	_, err := mcpserver.New(newKernel(t, mock.New()), 0, observability.NewNopLogger())
	assert.ErrorIs(t, err, mcpserver.ErrInvalidActor)
}

func TestHandleChat_ContinuesConversation(t *testing.T) {
	script := mock.New().
		Routes("ProductSearch", "FINISH").
		Tools(mock.Call("c1", "search_products", `{"query":"headphones"}`)).
		Text("The Premium Wireless Headphones are $299.99.").
		Routes("CartManager", "FINISH").
		Tools(mock.Call("c2", "add_to_cart", `{"product_id":1}`)).
		Text("Added to your cart.")

	srv, err := mcpserver.New(newKernel(t, script), 42, observability.NewNopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := srv.HandleChat(ctx, request(mcpserver.ToolChat, map[string]any{"query": "find me headphones"}))
	require.NoError(t, err)
	assert.False(t, first.IsError)
	assert.Equal(t, "The Premium Wireless Headphones are $299.99.", text(t, first))

	second, err := srv.HandleChat(ctx, request(mcpserver.ToolChat, map[string]any{"query": "add them"}))
	require.NoError(t, err)
	assert.Equal(t, "Added to your cart.", text(t, second))

	routes := script.RouteRequests()
	require.Len(t, routes, 4)
	assert.Equal(t, "find me headphones", routes[2].History[0].Content, "second turn sees the first")
	assert.Contains(t, script.RespondRequests()[2].Instruction, "User #42")
}

func TestHandleReset(t *testing.T) {
	script := mock.New().
		Routes("FINISH").
		Routes("FINISH")

	srv, err := mcpserver.New(newKernel(t, script), 42, observability.NewNopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = srv.HandleChat(ctx, request(mcpserver.ToolChat, map[string]any{"query": "hello"}))
	require.NoError(t, err)

	reset, err := srv.HandleReset(ctx, request(mcpserver.ToolReset, nil))
	require.NoError(t, err)
	assert.Equal(t, "Started a new conversation.", text(t, reset))

	again, err := srv.HandleChat(ctx, request(mcpserver.ToolChat, map[string]any{"query": "hi again"}))
	require.NoError(t, err)
	assert.Equal(t, kernel.DefaultFallbackReply, text(t, again))

	routes := script.RouteRequests()
	require.Len(t, routes, 2)
	assert.Len(t, routes[1].History, 1, "history starts over")
}

func TestHandleChat_Errors(t *testing.T) {
	script := mock.New().RouteError(errors.New("connection refused"))
	srv, err := mcpserver.New(newKernel(t, script), 42, observability.NewNopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	empty, err := srv.HandleChat(ctx, request(mcpserver.ToolChat, map[string]any{"query": "  "}))
	require.NoError(t, err)
	assert.True(t, empty.IsError)

	failed, err := srv.HandleChat(ctx, request(mcpserver.ToolChat, map[string]any{"query": "hello"}))
	require.NoError(t, err)
	assert.True(t, failed.IsError)
	assert.Contains(t, text(t, failed), "oracle unavailable")
}
