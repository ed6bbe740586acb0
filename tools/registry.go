package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tailored-agentic-units/concierge/core/protocol"
)

// Registry is an explicitly constructed set of tools. It is safe for
// concurrent use and is read-only in practice once the graph is built.
type Registry struct {
	entries map[Name]Tool
	mu      sync.RWMutex
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{entries: make(map[Name]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a new tool. Returns ErrAlreadyExists if the name is taken;
// use Replace to swap an existing tool.
func (r *Registry) Register(tool Tool) error {
	if err := validate(tool); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, tool.Name)
	}

	r.entries[tool.Name] = tool
	return nil
}

// Replace updates an existing tool. Returns ErrNotFound if it is not registered.
func (r *Registry) Replace(tool Tool) error {
	if err := validate(tool); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[tool.Name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, tool.Name)
	}

	r.entries[tool.Name] = tool
	return nil
}

func validate(tool Tool) error {
	if tool.Name == "" {
		return ErrEmptyName
	}
	if tool.Executor == nil {
		return fmt.Errorf("%w: %s", ErrNilExecutor, tool.Name)
	}
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name Name) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.entries[name]
	return t, exists
}

// Parse converts an oracle-supplied tool name into a Name, failing with
// ErrNotFound when the registry does not hold it.
func (r *Registry) Parse(name string) (Name, error) {
	if _, ok := r.Get(Name(name)); !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return Name(name), nil
}

// Contains reports whether a tool with the given name is registered.
func (r *Registry) Contains(name string) bool {
	_, ok := r.Get(Name(name))
	return ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]Name, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// List returns the registered tools in name order.
func (r *Registry) List() []Tool {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, r.entries[name])
	}
	return tools
}

// Definitions returns the oracle-facing descriptions in name order.
func (r *Registry) Definitions() []protocol.Tool {
	list := r.List()
	defs := make([]protocol.Tool, len(list))
	for i, t := range list {
		defs[i] = t.Definition()
	}
	return defs
}

// Subset returns a new registry scoped to the named tools. Every name must
// be registered here.
func (r *Registry) Subset(names ...Name) (*Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub := &Registry{entries: make(map[Name]Tool, len(names))}
	for _, name := range names {
		t, exists := r.entries[name]
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		sub.entries[name] = t
	}
	return sub, nil
}

// Execute runs the named tool with already sanitized arguments. Executor
// errors and panics are wrapped in ErrExecutorFailure.
func (r *Registry) Execute(ctx context.Context, name Name, args Args) (result Result, err error) {
	t, exists := r.Get(name)
	if !exists {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	defer func() {
		if p := recover(); p != nil {
			result = Result{}
			err = fmt.Errorf("%w: %s: panic: %v", ErrExecutorFailure, name, p)
		}
	}()

	result, err = t.Executor(ctx, args)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrExecutorFailure, name, err)
	}
	return result, nil
}
