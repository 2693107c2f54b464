package lunisolar

import (
	"fmt"
	"sync"

	"github.com/amaranthustech/jcal/astronomy/ephemeris"
	"github.com/amaranthustech/jcal/observability"
)

// ProviderSpec resolves to a concrete ephemeris provider instance via the
// registry below. An empty Path means "resolve by name only".
type ProviderSpec struct {
	Name string
	Path string
}

func (s ProviderSpec) key() string {
	return s.Name + "|" + s.Path
}

// providerFactory constructs a Provider for a given ProviderSpec.
type providerFactory func(ProviderSpec) (ephemeris.Provider, error)

// ProviderRegistry is a process-wide, bounded, (name,path)-keyed cache of
// ephemeris provider instances, guarded by a RWMutex. This replaces the
// donor's ad hoc global provider cache with a single explicit registry
// instance that callers construct and own, instead of a package-level
// global.
type ProviderRegistry struct {
	mu       sync.RWMutex
	entries  map[string]ephemeris.Provider
	order    []string // insertion order, for bounded LRU-ish eviction
	maxSize  int
	factory  providerFactory
	observer observability.ObserverInterface
}

// NewProviderRegistry creates a registry bounded to maxSize concurrently
// resolved providers, using factory to construct providers not yet cached.
func NewProviderRegistry(maxSize int, factory providerFactory) *ProviderRegistry {
	if maxSize <= 0 {
		maxSize = 8
	}
	return &ProviderRegistry{
		entries:  make(map[string]ephemeris.Provider),
		maxSize:  maxSize,
		factory:  factory,
		observer: observability.Observer(),
	}
}

// Resolve returns the cached provider for spec, constructing and caching a
// new one via the registry's factory if not already present. Evicts the
// oldest entry (by insertion order) if the registry is at capacity and the
// spec is not already cached.
func (r *ProviderRegistry) Resolve(spec ProviderSpec) (ephemeris.Provider, error) {
	key := spec.key()

	r.mu.RLock()
	if p, ok := r.entries[key]; ok {
		r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under write lock in case another goroutine won the race.
	if p, ok := r.entries[key]; ok {
		return p, nil
	}

	if r.factory == nil {
		return nil, fmt.Errorf("lunisolar: provider registry has no factory configured")
	}

	provider, err := r.factory(spec)
	if err != nil {
		return nil, fmt.Errorf("lunisolar: failed to resolve provider %q: %w", key, err)
	}

	if len(r.entries) >= r.maxSize {
		oldest := r.order[0]
		if old, ok := r.entries[oldest]; ok {
			old.Close()
		}
		delete(r.entries, oldest)
		r.order = r.order[1:]
	}

	r.entries[key] = provider
	r.order = append(r.order, key)
	return provider, nil
}

// Evict removes and closes a cached provider, if present.
func (r *ProviderRegistry) Evict(spec ProviderSpec) {
	key := spec.key()
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.entries[key]; ok {
		p.Close()
		delete(r.entries, key)
		for i, k := range r.order {
			if k == key {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
}

// Len returns the number of currently cached providers.
func (r *ProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close closes every cached provider and clears the registry.
func (r *ProviderRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, p := range r.entries {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.entries = make(map[string]ephemeris.Provider)
	r.order = nil
	return firstErr
}
