package oracle

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a provider from configuration.
type Factory func(cfg *Config) (Provider, error)

// DefaultName is the entry used when a role has no configuration of its own.
const DefaultName = "default"

// Registry manages named oracle configurations with lazy instantiation so
// the supervisor and each worker may run on different models. Adapters are
// created on first Get.
type Registry struct {
	mu       sync.Mutex
	factory  Factory
	configs  map[string]Config
	adapters map[string]*Adapter
}

// NewRegistry creates a registry that builds providers with factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:  factory,
		configs:  make(map[string]Config),
		adapters: make(map[string]*Adapter),
	}
}

// Register adds a named configuration.
func (r *Registry) Register(name string, cfg Config) error {
	if name == "" {
		return ErrEmptyOracleName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[name]; exists {
		return fmt.Errorf("%w: %s", ErrOracleExists, name)
	}
	r.configs[name] = cfg
	return nil
}

// Replace updates a named configuration and drops any cached adapter.
func (r *Registry) Replace(name string, cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.configs[name]; !exists {
		return fmt.Errorf("%w: %s", ErrOracleNotFound, name)
	}
	r.configs[name] = cfg
	delete(r.adapters, name)
	return nil
}

// Get returns the adapter for name, falling back to DefaultName.
func (r *Registry) Get(name string) (*Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.configs[name]; !ok {
		name = DefaultName
	}
	cfg, ok := r.configs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOracleNotFound, name)
	}

	if a, cached := r.adapters[name]; cached {
		return a, nil
	}

	p, err := r.factory(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle %q: %w", name, err)
	}

	a := NewAdapter(p, WithTimeout(cfg.Timeout))
	r.adapters[name] = a
	return a, nil
}

// Names lists the registered configuration names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
