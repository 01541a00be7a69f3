package poolstore

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/LeJamon/goAMMd/internal/core/pool"
	"github.com/LeJamon/goAMMd/internal/events"
)

// Store is the high-level persistence interface the daemon uses. Snapshots
// are the authoritative pool state, written after every committed mutation.
// The journal is the append-only event history.
type Store interface {
	// StoreSnapshot persists the state of one pool. seq is the event
	// sequence of the mutation that produced the state, zero at creation.
	StoreSnapshot(ctx context.Context, st pool.State, seq uint64) error

	// FetchSnapshot loads the state stored under the canonical pair key.
	// Returns nil with no error when no snapshot exists.
	FetchSnapshot(ctx context.Context, pairKey string) (*pool.State, uint64, error)

	// Snapshots loads every stored pool state.
	Snapshots(ctx context.Context) ([]pool.State, error)

	// AppendEvent adds one event record to the journal.
	AppendEvent(ctx context.Context, rec events.Record) error

	// Events replays journal records with sequence >= fromSeq in order.
	Events(ctx context.Context, fromSeq uint64, fn func(events.Record) error) error

	// LastSeq returns the highest sequence in the journal, zero when empty.
	LastSeq(ctx context.Context) (uint64, error)

	// Sweep removes expired entries from the snapshot cache.
	Sweep() error

	// Sync forces pending writes to stable storage.
	Sync() error

	// Stats returns store counters.
	Stats() Statistics

	// Close gracefully closes the store.
	Close() error
}

// StoreImpl wraps a Backend to implement the Store interface.
type StoreImpl struct {
	backend Backend
	cache   *Cache
	stats   struct {
		reads       uint64
		cacheHits   uint64
		cacheMisses uint64
		writes      uint64
		readBytes   uint64
		writeBytes  uint64
	}
}

// NewStore creates a new Store from an opened Backend.
func NewStore(backend Backend, cacheSize int, cacheTTL time.Duration) *StoreImpl {
	var cache *Cache
	if cacheSize > 0 {
		cache = NewCache(cacheSize, cacheTTL)
	}
	return &StoreImpl{
		backend: backend,
		cache:   cache,
	}
}

// Open validates the configuration, creates the configured backend, opens
// it and wraps it in a Store.
func Open(cfg *Config) (*StoreImpl, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := CreateBackend(cfg.Backend, cfg)
	if err != nil {
		return nil, err
	}

	if err := backend.Open(cfg.CreateIfMissing); err != nil {
		return nil, err
	}

	return NewStore(backend, cfg.CacheSize, cfg.CacheTTL), nil
}

// StoreSnapshot persists a pool state under its canonical pair key.
func (s *StoreImpl) StoreSnapshot(ctx context.Context, st pool.State, seq uint64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	pairKey, err := snapshotPairKey(st)
	if err != nil {
		return err
	}

	data, err := EncodeSnapshot(st)
	if err != nil {
		return err
	}

	rec := &Record{
		Kind:      KindSnapshot,
		Key:       SnapshotKey(pairKey),
		Seq:       seq,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	if status := s.backend.Store(rec); status != OK {
		return NewError("store snapshot", s.backend.Name(), rec.Key, statusError(status))
	}

	atomic.AddUint64(&s.stats.writes, 1)
	atomic.AddUint64(&s.stats.writeBytes, uint64(len(rec.Data)))

	// Update cache
	if s.cache != nil {
		s.cache.Put(rec)
	}

	return nil
}

// FetchSnapshot loads the state stored under the canonical pair key.
func (s *StoreImpl) FetchSnapshot(ctx context.Context, pairKey string) (*pool.State, uint64, error) {
	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	default:
	}

	atomic.AddUint64(&s.stats.reads, 1)
	key := SnapshotKey(pairKey)

	// Check cache first
	var rec *Record
	if s.cache != nil {
		if cached, found := s.cache.Get(key); found {
			atomic.AddUint64(&s.stats.cacheHits, 1)
			rec = cached
		} else {
			atomic.AddUint64(&s.stats.cacheMisses, 1)
		}
	}

	if rec == nil {
		fetched, status := s.backend.Fetch(key)
		if status == NotFound {
			return nil, 0, nil
		}
		if status != OK {
			return nil, 0, NewError("fetch snapshot", s.backend.Name(), key, statusError(status))
		}

		atomic.AddUint64(&s.stats.readBytes, uint64(len(fetched.Data)))
		if s.cache != nil {
			s.cache.Put(fetched)
		}
		rec = fetched
	}

	st, err := DecodeSnapshot(rec.Data)
	if err != nil {
		return nil, 0, err
	}

	return &st, rec.Seq, nil
}

// Snapshots loads every stored pool state in pair key order.
func (s *StoreImpl) Snapshots(ctx context.Context) ([]pool.State, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var states []pool.State
	err := s.backend.Scan(SnapshotKeyspace(), func(rec *Record) error {
		st, err := DecodeSnapshot(rec.Data)
		if err != nil {
			return err
		}
		states = append(states, st)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return states, nil
}

// AppendEvent adds one event record to the journal at its sequence key.
func (s *StoreImpl) AppendEvent(ctx context.Context, rec events.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := EncodeJournalRecord(rec)
	if err != nil {
		return err
	}

	stored := &Record{
		Kind:      KindJournal,
		Key:       JournalKey(rec.Seq),
		Seq:       rec.Seq,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	if status := s.backend.Store(stored); status != OK {
		return NewError("append event", s.backend.Name(), stored.Key, statusError(status))
	}

	atomic.AddUint64(&s.stats.writes, 1)
	atomic.AddUint64(&s.stats.writeBytes, uint64(len(stored.Data)))

	return nil
}

// Events replays journal records with sequence >= fromSeq in order.
func (s *StoreImpl) Events(ctx context.Context, fromSeq uint64, fn func(events.Record) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return s.backend.Scan(JournalKeyspace(), func(rec *Record) error {
		if rec.Seq < fromSeq {
			return nil
		}
		event, err := DecodeJournalRecord(rec.Data)
		if err != nil {
			return err
		}
		return fn(event)
	})
}

// LastSeq returns the highest journal sequence, zero when the journal is
// empty. Journal keys are in sequence order, so the last visited wins.
func (s *StoreImpl) LastSeq(ctx context.Context) (uint64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	var last uint64
	err := s.backend.Scan(JournalKeyspace(), func(rec *Record) error {
		last = rec.Seq
		return nil
	})
	if err != nil {
		return 0, err
	}

	return last, nil
}

// Sweep removes expired entries from the snapshot cache.
func (s *StoreImpl) Sweep() error {
	if s.cache != nil {
		s.cache.Sweep()
	}
	return nil
}

// Sync forces pending writes to stable storage.
func (s *StoreImpl) Sync() error {
	if status := s.backend.Sync(); status != OK {
		return NewError("sync", s.backend.Name(), "", statusError(status))
	}
	return nil
}

// Stats returns store counters.
func (s *StoreImpl) Stats() Statistics {
	stats := Statistics{
		Reads:       atomic.LoadUint64(&s.stats.reads),
		CacheHits:   atomic.LoadUint64(&s.stats.cacheHits),
		CacheMisses: atomic.LoadUint64(&s.stats.cacheMisses),
		ReadBytes:   atomic.LoadUint64(&s.stats.readBytes),
		Writes:      atomic.LoadUint64(&s.stats.writes),
		WriteBytes:  atomic.LoadUint64(&s.stats.writeBytes),
		BackendName: s.backend.Name(),
	}

	if s.cache != nil {
		cacheStats := s.cache.Stats()
		stats.CacheSize = uint64(cacheStats.CurrentSize)
		stats.CacheMaxSize = uint64(cacheStats.MaxSize)
	}

	return stats
}

// Close gracefully closes the store.
func (s *StoreImpl) Close() error {
	return s.backend.Close()
}
