package structpack

import (
	"fmt"
	"sync"

	"github.com/artpar/confchan/domain/property"
)

// Registry maps struct names to layouts so callers can refer to a
// record shape by name instead of repeating the member list. Entries
// persist for the registry's lifetime; there is no removal.
type Registry struct {
	mu      sync.RWMutex
	layouts map[string]Layout
}

// NewRegistry creates an empty layout registry.
func NewRegistry() *Registry {
	return &Registry{layouts: make(map[string]Layout)}
}

// Register stores a layout under name. The layout is copied and
// validated; a layout with an unrepresentable member tag is rejected.
// Re-registering a name replaces the previous layout.
func (r *Registry) Register(name string, layout Layout) error {
	if name == "" {
		return fmt.Errorf("%w: empty struct name", property.ErrInvalidArgument)
	}
	if len(layout) == 0 {
		return fmt.Errorf("%w: empty layout for struct %q", property.ErrInvalidArgument, name)
	}
	if _, err := layout.Size(); err != nil {
		return fmt.Errorf("struct %q: %w", name, err)
	}

	cp := make(Layout, len(layout))
	copy(cp, layout)

	r.mu.Lock()
	r.layouts[name] = cp
	r.mu.Unlock()
	return nil
}

// Lookup returns the layout registered under name.
func (r *Registry) Lookup(name string) (Layout, error) {
	r.mu.RLock()
	l, ok := r.layouts[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: struct %q is not registered", property.ErrNotFound, name)
	}
	return l, nil
}
