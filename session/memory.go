package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/concierge/core/protocol"
)

type memorySession struct {
	id       string
	actorID  int64
	messages []protocol.Message
	route    string
	mu       sync.RWMutex
}

// New creates an in-memory Session for the given actor, assigned a UUIDv7
// identifier.
func New(actorID int64) Session {
	return &memorySession{
		id:      uuid.Must(uuid.NewV7()).String(),
		actorID: actorID,
	}
}

// Restore rebuilds a Session from a snapshot.
func Restore(snap Snapshot) Session {
	s := &memorySession{
		id:      snap.ID,
		actorID: snap.ActorID,
		route:   snap.Route,
	}
	if s.id == "" {
		s.id = uuid.Must(uuid.NewV7()).String()
	}
	s.messages = cloneMessages(snap.Messages)
	return s
}

func (s *memorySession) ID() string {
	return s.id
}

func (s *memorySession) ActorID() int64 {
	return s.actorID
}

func (s *memorySession) Append(msgs ...protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range msgs {
		s.messages = append(s.messages, msg.Clone())
	}
}

func (s *memorySession) Messages() []protocol.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.messages)
}

func (s *memorySession) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *memorySession) Last() (protocol.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return protocol.Message{}, false
	}
	return s.messages[len(s.messages)-1].Clone(), true
}

func (s *memorySession) Route() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.route
}

func (s *memorySession) SetRoute(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = label
}

func (s *memorySession) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:        s.id,
		ActorID:   s.actorID,
		Messages:  cloneMessages(s.messages),
		Route:     s.route,
		Timestamp: time.Now(),
	}
}

func cloneMessages(msgs []protocol.Message) []protocol.Message {
	copied := make([]protocol.Message, len(msgs))
	for i, msg := range msgs {
		copied[i] = msg.Clone()
	}
	return copied
}
