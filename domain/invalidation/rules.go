// Package invalidation maps mutation names to the cache key prefixes a
// successful mutation invalidates. The table is the single routing source
// for post-mutation refreshes; resolution never guesses beyond what was
// explicitly bound.
package invalidation

import (
	"sync"

	"github.com/felixgeelhaar/querykit/domain/key"
)

// Rules is a concurrency-safe binding table from mutation name to key
// prefixes. Rebinding a name replaces its previous prefix set wholesale.
type Rules struct {
	mu       sync.RWMutex
	bindings map[string][]key.Prefix
}

// NewRules creates an empty binding table.
func NewRules() *Rules {
	return &Rules{bindings: make(map[string][]key.Prefix)}
}

// Bind registers the prefixes invalidated when the named mutation
// succeeds. Zero-value prefixes are dropped; binding with no usable
// prefixes clears the entry, so Bind is idempotent and replayable.
func (r *Rules) Bind(mutation string, prefixes ...key.Prefix) error {
	if mutation == "" {
		return ErrEmptyMutation
	}

	kept := make([]key.Prefix, 0, len(prefixes))
	for _, p := range prefixes {
		if !p.IsZero() {
			kept = append(kept, p)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(kept) == 0 {
		delete(r.bindings, mutation)
		return nil
	}
	r.bindings[mutation] = kept
	return nil
}

// Unbind removes the named mutation's bindings. Unknown names are a no-op.
func (r *Rules) Unbind(mutation string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, mutation)
}

// Resolve returns the prefixes bound to the named mutation. Unknown names
// resolve to an empty set, never an error. The returned slice is a copy.
func (r *Rules) Resolve(mutation string) []key.Prefix {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bound, ok := r.bindings[mutation]
	if !ok {
		return nil
	}
	out := make([]key.Prefix, len(bound))
	copy(out, bound)
	return out
}

// Bindings returns a snapshot of the whole table.
func (r *Rules) Bindings() map[string][]key.Prefix {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]key.Prefix, len(r.bindings))
	for name, bound := range r.bindings {
		cp := make([]key.Prefix, len(bound))
		copy(cp, bound)
		out[name] = cp
	}
	return out
}

// Len returns the number of bound mutations.
func (r *Rules) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
