package service

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/pool"
)

// Entry is one registered pool. Its mutex serializes a pool operation
// together with the snapshot write that follows it, so persisted state
// never interleaves across operations. lastSeq holds the sequence of
// the newest event committed for this pool.
type Entry struct {
	Pair asset.Pair
	Pool *pool.Pool

	mu      sync.Mutex
	lastSeq atomic.Uint64
}

// LastSeq returns the sequence of the newest committed event for this
// pool, zero before the first mutation.
func (e *Entry) LastSeq() uint64 {
	return e.lastSeq.Load()
}

// Registry tracks one pool per canonical pair key.
type Registry struct {
	mu    sync.RWMutex
	pools map[string]*Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pools: make(map[string]*Entry)}
}

// Add registers a pool under its canonical pair. It fails with
// ErrPoolExists when the pair is already registered.
func (r *Registry) Add(pair asset.Pair, p *pool.Pool) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pair.Key()
	if _, ok := r.pools[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolExists, key)
	}
	entry := &Entry{Pair: pair, Pool: p}
	r.pools[key] = entry
	return entry, nil
}

// remove drops an entry, used to undo a registration whose initial
// snapshot failed to persist.
func (r *Registry) remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pools, key)
}

// Get returns the entry for a canonical pair key.
func (r *Registry) Get(key string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.pools[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, key)
	}
	return entry, nil
}

// Lookup canonicalizes the two assets and returns their entry.
func (r *Registry) Lookup(a, b asset.Asset) (*Entry, error) {
	pair, err := asset.NewPair(a, b)
	if err != nil {
		return nil, err
	}
	return r.Get(pair.Key())
}

// List returns every entry ordered by pair key.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*Entry, 0, len(r.pools))
	for _, entry := range r.pools {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Pair.Key() < entries[j].Pair.Key()
	})
	return entries
}

// Len returns the number of registered pools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}
