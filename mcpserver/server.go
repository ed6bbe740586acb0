// Package mcpserver exposes the kernel as a Model Context Protocol server so
// MCP clients can converse with the store assistant as a tool.
//
// The server speaks for a single actor fixed at startup. The stdio transport
// is a local process boundary, so the actor comes from the operator, never
// from tool arguments.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tailored-agentic-units/concierge/kernel"
	"github.com/tailored-agentic-units/concierge/session"
)

const (
	Name    = "concierge"
	Version = "0.1.0"

	ToolChat  = "chat"
	ToolReset = "new_conversation"
)

var ErrInvalidActor = errors.New("mcp server needs a positive actor id")

// Conversation answers a query within a session. *kernel.Kernel implements it.
type Conversation interface {
	Turn(ctx context.Context, sess session.Session, query string) (*kernel.Result, error)
}

// Server holds one conversation per process. Turns are serialized.
type Server struct {
	conv   Conversation
	actor  int64
	logger *slog.Logger

	mu   sync.Mutex
	sess session.Session

	mcpServer *server.MCPServer
}

// New creates a server speaking for actorID.
func New(conv Conversation, actorID int64, logger *slog.Logger) (*Server, error) {
	if actorID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidActor, actorID)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		conv:      conv,
		actor:     actorID,
		logger:    logger,
		sess:      session.New(actorID),
		mcpServer: server.NewMCPServer(Name, Version),
	}
	s.registerTools()
	return s, nil
}

// ServeStdio serves on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPServer returns the underlying server, e.g. for an SSE transport.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(ToolChat,
		mcp.WithDescription("Ask the store assistant to search the catalog, manage the cart, or check out. "+
			"The conversation continues across calls until new_conversation is called."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The customer's message")),
	), s.HandleChat)

	s.mcpServer.AddTool(mcp.NewTool(ToolReset,
		mcp.WithDescription("Forget the conversation so far and start a new one."),
	), s.HandleReset)
}

// HandleChat runs one turn. Turn failures are reported as tool errors.
func (s *Server) HandleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(request.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.conv.Turn(ctx, s.sess, query)
	if err != nil {
		s.logger.Error("mcp chat turn failed", "actor", s.actor, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("turn failed: %v", err)), nil
	}
	return mcp.NewToolResultText(result.Reply), nil
}

// HandleReset starts a fresh session for the same actor.
func (s *Server) HandleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess = session.New(s.actor)
	return mcp.NewToolResultText("Started a new conversation."), nil
}
