package typeapi

import (
	"fmt"
	"sync"

	"domaincore/pkg/object"
)

// Registry holds the behavior bound to each entity type. Safe for
// concurrent use; registration normally happens once at startup.
type Registry struct {
	mu        sync.RWMutex
	behaviors map[object.TypeTag]Behavior
}

// NewRegistry returns an empty behavior registry.
func NewRegistry() *Registry {
	return &Registry{behaviors: make(map[object.TypeTag]Behavior)}
}

// Register binds a behavior under its declared type tag.
func (r *Registry) Register(b Behavior) error {
	tag := b.Info().Type
	if tag == "" {
		return fmt.Errorf("behavior declares no type tag")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.behaviors[tag]; exists {
		return fmt.Errorf("behavior for type %s already registered", tag)
	}
	r.behaviors[tag] = b
	return nil
}

// Lookup resolves the behavior for a type tag.
func (r *Registry) Lookup(tag object.TypeTag) (Behavior, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.behaviors[tag]
	return b, ok
}

// Types lists the registered type tags.
func (r *Registry) Types() []object.TypeTag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]object.TypeTag, 0, len(r.behaviors))
	for tag := range r.behaviors {
		out = append(out, tag)
	}
	return out
}
