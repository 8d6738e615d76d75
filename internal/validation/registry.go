package validation

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the properties of one record type by name. New
// instances are produced per check run so stateful properties start empty.
type Registry[T any] struct {
	factories map[string]func() Property[T]
	mu        sync.RWMutex
}

// NewRegistry returns an empty registry. Call Register to add properties.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{factories: make(map[string]func() Property[T])}
}

// Register adds a property factory under the name of the type it builds
// and returns that name. Registering a name twice replaces the first.
func (r *Registry[T]) Register(factory func() Property[T]) string {
	name := PropertyName(factory())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	return name
}

// Get returns a fresh instance of the named property.
func (r *Registry[T]) Get(name string) (Property[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("validation: property %q not found", name)
	}
	return f(), nil
}

// List returns all registered property names, sorted.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type namedProperty[T any] struct {
	name string
	prop Property[T]
}

// instantiate builds one instance of every registered property in name
// order.
func (r *Registry[T]) instantiate() []namedProperty[T] {
	names := r.List()
	out := make([]namedProperty[T], 0, len(names))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range names {
		out = append(out, namedProperty[T]{name: n, prop: r.factories[n]()})
	}
	return out
}
