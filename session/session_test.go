package session_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/concierge/core/protocol"
	"github.com/tailored-agentic-units/concierge/session"
)

func TestNew(t *testing.T) {
	a, b := session.New(42), session.New(42)

	assert.NotEmpty(t, a.ID())
	assert.Equal(t, a.ID(), a.ID(), "id is stable")
	assert.NotEqual(t, a.ID(), b.ID(), "ids are unique")
	assert.Equal(t, int64(42), a.ActorID())
	assert.Zero(t, a.Len())
	assert.Empty(t, a.Route())

	_, ok := a.Last()
	assert.False(t, ok)
}

func TestSession_Append(t *testing.T) {
	s := session.New(42)

	s.Append(protocol.NewMessage(protocol.RoleUser, "I need wireless headphones"))
	prefix := s.Messages()

	s.Append(
		protocol.Message{
			Role:      protocol.RoleAssistant,
			Author:    "ProductSearch",
			ToolCalls: []protocol.ToolCall{{ID: "call_1", Name: "search_products", Arguments: `{"query":"headphones"}`}},
		},
		protocol.Message{Role: protocol.RoleTool, ToolCallID: "call_1", Content: `[{"id":3}]`},
	)

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, prefix, msgs[:1], "earlier messages are untouched")
	assert.Equal(t, []protocol.Role{protocol.RoleUser, protocol.RoleAssistant, protocol.RoleTool},
		[]protocol.Role{msgs[0].Role, msgs[1].Role, msgs[2].Role})
	assert.Equal(t, msgs[1].ToolCalls[0].ID, msgs[2].ToolCallID)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, "call_1", last.ToolCallID)
}

func TestSession_Isolation(t *testing.T) {
	t.Run("returned log is a copy", func(t *testing.T) {
		s := session.New(42)
		s.Append(protocol.Message{
			Role:      protocol.RoleAssistant,
			ToolCalls: []protocol.ToolCall{{ID: "call_1", Name: "view_cart", Arguments: "{}"}},
		})

		msgs := s.Messages()
		msgs[0].Content = "tampered"
		msgs[0].ToolCalls[0].Name = "checkout"
		_ = append(msgs, protocol.NewMessage(protocol.RoleUser, "extra"))

		got := s.Messages()
		require.Len(t, got, 1)
		assert.Empty(t, got[0].Content)
		assert.Equal(t, "view_cart", got[0].ToolCalls[0].Name)
	})

	t.Run("appended slices are detached", func(t *testing.T) {
		s := session.New(1)
		calls := []protocol.ToolCall{{ID: "call_1", Name: "view_cart"}}

		s.Append(protocol.Message{Role: protocol.RoleAssistant, ToolCalls: calls})
		calls[0].Name = "checkout"

		assert.Equal(t, "view_cart", s.Messages()[0].ToolCalls[0].Name)
	})
}

func TestSession_Concurrent(t *testing.T) {
	s := session.New(42)
	const n = 100

	var wg sync.WaitGroup
	wg.Add(2 * n)
	for range n {
		go func() {
			defer wg.Done()
			s.Append(protocol.NewMessage(protocol.RoleUser, "msg"))
		}()
		go func() {
			defer wg.Done()
			_ = s.Messages()
			_ = s.Route()
		}()
	}
	wg.Wait()

	assert.Equal(t, n, s.Len())
}

func TestSession_SnapshotRestore(t *testing.T) {
	s := session.New(7)
	s.Append(protocol.NewMessage(protocol.RoleUser, "add the chair"))
	s.SetRoute("CartManager")

	restored := session.Restore(s.Snapshot())

	assert.Equal(t, s.ID(), restored.ID())
	assert.Equal(t, int64(7), restored.ActorID())
	assert.Equal(t, "CartManager", restored.Route())
	assert.Equal(t, s.Messages(), restored.Messages())

	restored.Append(protocol.NewMessage(protocol.RoleAssistant, "done"))
	assert.Equal(t, 1, s.Len(), "restored session does not share storage")
}
