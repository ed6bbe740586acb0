// Package session holds the state shared by every node during one turn: the
// append-only message log, the authenticated actor, and the current route.
package session

import (
	"time"

	"github.com/tailored-agentic-units/concierge/core/protocol"
)

// Session is the per-turn record threaded through the graph by reference.
// Messages are only ever appended; nothing is edited, removed, or reordered.
// Implementations must be safe for concurrent use.
type Session interface {
	// ID returns the unique session identifier.
	ID() string
	// ActorID returns the authenticated actor. It is fixed at construction.
	ActorID() int64
	// Append adds messages to the end of the log.
	Append(msgs ...protocol.Message)
	// Messages returns a defensive copy of the log.
	Messages() []protocol.Message
	// Len returns the number of logged messages.
	Len() int
	// Last returns the most recent message, if any.
	Last() (protocol.Message, bool)
	// Route returns the label chosen by the most recent routing decision.
	Route() string
	// SetRoute records a routing decision.
	SetRoute(label string)
	// Snapshot captures the session for checkpointing.
	Snapshot() Snapshot
}

// Snapshot is a serialisable copy of a session.
type Snapshot struct {
	ID        string             `json:"id"`
	ActorID   int64              `json:"actor_id"`
	Messages  []protocol.Message `json:"messages"`
	Route     string             `json:"route,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}
