// Package memory holds instruction documents: operator-written notes that
// are appended to the supervisor and worker instructions on every turn.
// Documents live in a key-value namespace behind a pluggable Store.
package memory

import "context"

// Store translates between external storage and the document namespace.
// Implementations do no caching; a Library caches.
type Store interface {
	// List returns every key in the store in sorted order.
	List(ctx context.Context) ([]string, error)
	// Load retrieves entries for the given keys.
	Load(ctx context.Context, keys ...string) ([]Entry, error)
	// Save creates or overwrites entries.
	Save(ctx context.Context, entries ...Entry) error
	// Delete removes entries. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
