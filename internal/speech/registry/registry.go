package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory creates an instance of T from a configuration value C.
type Factory[C, T any] func(config C) (T, error)

// Registry holds named factories for creating instances of T.
type Registry[C, T any] struct {
	mu        sync.RWMutex
	factories map[string]Factory[C, T]
}

// New creates a new empty registry.
func New[C, T any]() *Registry[C, T] {
	return &Registry[C, T]{
		factories: make(map[string]Factory[C, T]),
	}
}

// Register adds a named factory to the registry.
func (r *Registry[C, T]) Register(name string, factory Factory[C, T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create instantiates T using the named factory.
func (r *Registry[C, T]) Create(name string, config C) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown backend %q (registered: %s)", name, strings.Join(r.List(), ", "))
	}

	return factory(config)
}

// CreateAll instantiates every named factory with the same config, keeping
// the order of names.
func (r *Registry[C, T]) CreateAll(config C, names ...string) ([]T, error) {
	out := make([]T, 0, len(names))
	for _, name := range names {
		v, err := r.Create(name, config)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Has returns true if the named factory exists.
func (r *Registry[C, T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List returns all registered factory names in lexical order.
func (r *Registry[C, T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
