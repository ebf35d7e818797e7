// Package registry provides a generic thread-safe registry, used by the
// config package to resolve checkpoint backend names to factories.
//
// Registries are read-heavy after startup, so lookups take a read lock.
// Registration typically happens in package init or main before any graph
// is invoked, but all methods stay safe for concurrent use.
//
// The factory pattern is the intended shape:
//
//	type StoreFactory func(cfg Config) (checkpoint.Store, error)
//
//	backends := registry.New[string, StoreFactory]()
//	backends.Register("memory", newMemoryStore)
//	backends.Register("sqlite", newSQLiteStore)
//
//	factory, ok := backends.Lookup("sqlite")
//	if ok {
//	    store, err := factory(cfg)
//	    // ...
//	}
package registry

import "sync"

// Registry maps comparable keys to values under a sync.RWMutex.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates an empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register adds or replaces the value for a key.
func (r *Registry[K, V]) Register(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
}

// Lookup returns the value for a key and whether it exists.
func (r *Registry[K, V]) Lookup(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Has reports whether the key is registered.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Unregister removes a key. Removing an absent key is a no-op.
func (r *Registry[K, V]) Unregister(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// Keys returns all registered keys in unspecified order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of registered entries.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Range calls fn for each entry until fn returns false. Iteration runs over
// a snapshot, so registering or unregistering from inside fn is safe and
// does not affect the current pass.
func (r *Registry[K, V]) Range(fn func(K, V) bool) {
	r.mu.RLock()
	snapshot := make(map[K]V, len(r.entries))
	for k, v := range r.entries {
		snapshot[k] = v
	}
	r.mu.RUnlock()

	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}

// GetOrCreate returns the value for a key, creating it with factory if
// absent. The factory runs at most once per key, even under concurrent
// access.
func (r *Registry[K, V]) GetOrCreate(key K, factory func() V) V {
	r.mu.RLock()
	v, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return v
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.entries[key]; ok {
		return v
	}

	v = factory()
	r.entries[key] = v
	return v
}
