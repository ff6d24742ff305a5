package registry

import (
	"maps"
	"sync"
)

// Descriptor identifies a remote application and where to load it from.
// It is immutable once registered.
type Descriptor struct {
	Name    string
	Locator string
	Props   map[string]string
}

// Registry holds all registered application descriptors for a single
// application instance.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
	order       []*Descriptor
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		descriptors: make(map[string]*Descriptor),
	}
}

// Register adds a descriptor. The registry keeps its own copy.
func (r *Registry) Register(d *Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[d.Name]; exists {
		return &DuplicateNameError{Name: d.Name}
	}

	stored := &Descriptor{Name: d.Name, Locator: d.Locator, Props: maps.Clone(d.Props)}
	r.descriptors[d.Name] = stored
	r.order = append(r.order, stored)
	return nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.descriptors[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return d, nil
}

// All returns every descriptor in registration order.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered applications.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
