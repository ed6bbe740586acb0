package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Library caches every document of a Store. Reads never trigger I/O; Put
// and Remove write through. All methods are safe for concurrent use.
type Library struct {
	store Store
	docs  map[string][]byte
	mu    sync.RWMutex
}

// NewLibrary creates an empty Library backed by store. Call Load to fill it.
func NewLibrary(store Store) *Library {
	return &Library{
		store: store,
		docs:  make(map[string][]byte),
	}
}

// Load replaces the cache with the store's current contents.
func (l *Library) Load(ctx context.Context) error {
	keys, err := l.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	docs := make(map[string][]byte, len(keys))
	if len(keys) > 0 {
		entries, err := l.store.Load(ctx, keys...)
		if err != nil {
			return fmt.Errorf("load documents: %w", err)
		}
		for _, e := range entries {
			docs[e.Key] = e.Value
		}
	}

	l.mu.Lock()
	l.docs = docs
	l.mu.Unlock()
	return nil
}

func (l *Library) Get(key string) ([]byte, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	val, ok := l.docs[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(val), true
}

// Keys returns the cached keys in sorted order.
func (l *Library) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.docs))
	for key := range l.docs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Put saves entries to the store, then caches them.
func (l *Library) Put(ctx context.Context, entries ...Entry) error {
	if err := l.store.Save(ctx, entries...); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range entries {
		l.docs[e.Key] = slices.Clone(e.Value)
	}
	return nil
}

// Remove deletes keys from the store and the cache.
func (l *Library) Remove(ctx context.Context, keys ...string) error {
	if err := l.store.Delete(ctx, keys...); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range keys {
		delete(l.docs, key)
	}
	return nil
}

// Supervisor returns the shared and supervisor documents joined for an
// instruction.
func (l *Library) Supervisor() string {
	return l.join(NamespaceShared+"/", NamespaceSupervisor+"/")
}

// Worker returns the shared documents and the named worker's documents.
func (l *Library) Worker(name string) string {
	return l.join(NamespaceShared+"/", WorkerPrefix(name))
}

func (l *Library) join(prefixes ...string) string {
	if l == nil {
		return ""
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var parts []string
	for _, prefix := range prefixes {
		var keys []string
		for key := range l.docs {
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		for _, key := range keys {
			if text := strings.TrimSpace(string(l.docs[key])); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}
