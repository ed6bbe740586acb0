package graph

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tailored-agentic-units/concierge/session"
)

// Checkpoint is the persisted progress of one run: the node that last
// completed, the path so far, and a snapshot of the session.
type Checkpoint struct {
	RunID     string           `json:"run_id"`
	Node      string           `json:"node"`
	Steps     int              `json:"steps"`
	Path      []string         `json:"path"`
	Session   session.Snapshot `json:"session"`
	Timestamp time.Time        `json:"timestamp"`
}

// CheckpointStore persists checkpoints by run id.
//
// Save overwrites any checkpoint with the same run id. Load returns an error
// wrapping ErrCheckpointNotFound when nothing is stored. Delete of a missing
// run id is not an error. Implementations must be safe for concurrent use.
type CheckpointStore interface {
	Save(ctx context.Context, cp Checkpoint) error
	Load(ctx context.Context, runID string) (Checkpoint, error)
	Delete(ctx context.Context, runID string) error
	List(ctx context.Context) ([]string, error)
}

// MemoryStore keeps checkpoints in process memory. Checkpoints are lost when
// the process exits.
type MemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]Checkpoint
}

// NewMemoryStore creates an empty in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{checkpoints: make(map[string]Checkpoint)}
}

func (m *MemoryStore) Save(ctx context.Context, cp Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp.Path = slices.Clone(cp.Path)
	cp.Session.Messages = slices.Clone(cp.Session.Messages)
	m.checkpoints[cp.RunID] = cp
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, runID string) (Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, exists := m.checkpoints[runID]
	if !exists {
		return Checkpoint{}, fmt.Errorf("%w: %s", ErrCheckpointNotFound, runID)
	}
	cp.Path = slices.Clone(cp.Path)
	cp.Session.Messages = slices.Clone(cp.Session.Messages)
	return cp, nil
}

func (m *MemoryStore) Delete(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.checkpoints, runID)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.checkpoints))
	for id := range m.checkpoints {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
