package memory

import (
	"fmt"
	"path"
	"strings"
)

// Key namespaces. Documents under NamespaceShared reach every node,
// NamespaceSupervisor only the supervisor, and NamespaceWorkers/<name>/ only
// the named worker.
const (
	NamespaceShared     = "shared"
	NamespaceSupervisor = "supervisor"
	NamespaceWorkers    = "workers"
)

// Entry is one document. Keys are /-separated relative paths.
type Entry struct {
	Key   string
	Value []byte
}

// WorkerPrefix returns the key prefix of the named worker's documents.
func WorkerPrefix(worker string) string {
	return NamespaceWorkers + "/" + worker + "/"
}

// ValidKey rejects keys that are empty, absolute, or climb out of the
// namespace.
func ValidKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return nil
}
