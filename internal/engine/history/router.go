package history

import (
	"fmt"
	"sync"

	"github.com/Tilix4/kdenlive/internal/engine/ident"
)

// Router dispatches edits to the entity registered under the edit's target id.
type Router struct {
	mu      sync.RWMutex
	targets map[ident.ID]Applier
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{targets: make(map[ident.ID]Applier)}
}

// Register makes a the interpreter for edits addressed to id.
func (r *Router) Register(id ident.ID, a Applier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[id] = a
}

// Deregister removes the interpreter for id.
func (r *Router) Deregister(id ident.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.targets, id)
}

// Lookup returns the interpreter registered for id.
func (r *Router) Lookup(id ident.ID) (Applier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.targets[id]
	return a, ok
}

// Len returns the number of registered targets.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}

// Apply forwards e to its target.
// The lock is not held while the target applies the edit, so targets may
// register or deregister other entities from inside Apply.
func (r *Router) Apply(e Edit) error {
	a, ok := r.Lookup(e.Target())
	if !ok {
		return fmt.Errorf("%w: %d (%s)", ErrUnknownTarget, e.Target(), e.Kind())
	}
	return a.Apply(e)
}
