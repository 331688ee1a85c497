package di

import "sync"

// providerRegistry maps keys to providers, preserving insertion order so a
// container can be replayed deterministically as a catalog source.
//
// All access is guarded; the registry is shared across every goroutine
// touching the container.
type providerRegistry struct {
	mu    sync.RWMutex
	byKey map[Key]*Provider
	order []Key
}

func newProviderRegistry() *providerRegistry {
	return &providerRegistry{byKey: make(map[Key]*Provider)}
}

// put stores p under its key. Without overwrite, an existing key fails with
// DuplicateProviderError and the registry is left untouched. Overwriting
// keeps the key's original insertion position.
func (r *providerRegistry) put(p *Provider, overwrite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[p.key]; exists {
		if !overwrite {
			return DuplicateProviderError{Key: p.key}
		}
		r.byKey[p.key] = p
		return nil
	}
	r.byKey[p.key] = p
	r.order = append(r.order, p.key)
	return nil
}

// get returns the provider for key, if any.
func (r *providerRegistry) get(key Key) (*Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byKey[key]
	return p, ok
}

// has reports whether key is registered.
func (r *providerRegistry) has(key Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byKey[key]
	return ok
}

// len returns the number of registered providers.
func (r *providerRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}

// keys returns the registered keys in insertion order.
func (r *providerRegistry) keys() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Key, len(r.order))
	copy(out, r.order)
	return out
}

// definitions snapshots the registry as replayable catalog definitions in
// insertion order.
func (r *providerRegistry) definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byKey[k].definition())
	}
	return out
}
