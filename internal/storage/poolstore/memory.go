package poolstore

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// MemoryBackend keeps records in a plain map. It backs unit tests and
// throwaway deployments; nothing survives Close.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[Key]*Record

	open atomic.Bool

	// Statistics
	stats struct {
		reads        int64
		writes       int64
		bytesRead    int64
		bytesWritten int64
	}
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[Key]*Record),
	}
}

// NewMemoryBackendFromConfig adapts NewMemoryBackend to the BackendFactory
// signature. The config is ignored.
func NewMemoryBackendFromConfig(config *Config) (Backend, error) {
	return NewMemoryBackend(), nil
}

func (m *MemoryBackend) Name() string {
	return "memory"
}

// Open marks the backend usable. Opening twice is an error.
func (m *MemoryBackend) Open(createIfMissing bool) error {
	if !m.open.CompareAndSwap(false, true) {
		return fmt.Errorf("backend already open")
	}
	return nil
}

// Close drops all data and marks the backend closed.
func (m *MemoryBackend) Close() error {
	if !m.open.CompareAndSwap(true, false) {
		return nil // Already closed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[Key]*Record)

	return nil
}

func (m *MemoryBackend) IsOpen() bool {
	return m.open.Load()
}

// Fetch returns a copy of the record under key, so callers may mutate the
// result freely.
func (m *MemoryBackend) Fetch(key Key) (*Record, Status) {
	if !m.IsOpen() {
		return nil, BackendError
	}

	m.mu.RLock()
	rec, found := m.data[key]
	m.mu.RUnlock()

	if !found {
		return nil, NotFound
	}

	atomic.AddInt64(&m.stats.reads, 1)
	atomic.AddInt64(&m.stats.bytesRead, int64(len(rec.Data)))

	return rec.Clone(), OK
}

// FetchBatch returns copies of the records under keys; missing keys yield
// nil entries.
func (m *MemoryBackend) FetchBatch(keys []Key) ([]*Record, Status) {
	if !m.IsOpen() {
		return nil, BackendError
	}

	results := make([]*Record, len(keys))

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i, key := range keys {
		if rec, found := m.data[key]; found {
			results[i] = rec.Clone()

			atomic.AddInt64(&m.stats.reads, 1)
			atomic.AddInt64(&m.stats.bytesRead, int64(len(rec.Data)))
		}
	}

	return results, OK
}

// Store saves a copy of the record, so later caller mutations do not leak
// into the stored state.
func (m *MemoryBackend) Store(rec *Record) Status {
	if rec == nil || rec.Validate() != nil {
		return BackendError
	}

	if !m.IsOpen() {
		return BackendError
	}

	m.mu.Lock()
	m.data[rec.Key] = rec.Clone()
	m.mu.Unlock()

	atomic.AddInt64(&m.stats.writes, 1)
	atomic.AddInt64(&m.stats.bytesWritten, int64(len(rec.Data)))

	return OK
}

// StoreBatch saves copies of the records, skipping invalid entries.
func (m *MemoryBackend) StoreBatch(recs []*Record) Status {
	if !m.IsOpen() {
		return BackendError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var totalBytes int64
	var stored int64

	for _, rec := range recs {
		if rec == nil || rec.Validate() != nil {
			continue
		}

		m.data[rec.Key] = rec.Clone()
		totalBytes += int64(len(rec.Data))
		stored++
	}

	atomic.AddInt64(&m.stats.writes, stored)
	atomic.AddInt64(&m.stats.bytesWritten, totalBytes)

	return OK
}

// Delete removes a record by key.
func (m *MemoryBackend) Delete(key Key) Status {
	if !m.IsOpen() {
		return BackendError
	}

	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()

	return OK
}

// Scan visits all records with the given key prefix in ascending key order.
func (m *MemoryBackend) Scan(prefix Key, fn func(*Record) error) error {
	if !m.IsOpen() {
		return ErrBackendClosed
	}

	m.mu.RLock()
	keys := make([]Key, 0, len(m.data))
	for key := range m.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	m.mu.RUnlock()

	// Key comparison is bytewise, matching the on-disk backends.
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, key := range keys {
		m.mu.RLock()
		rec, found := m.data[key]
		m.mu.RUnlock()
		if !found {
			continue
		}

		if err := fn(rec.Clone()); err != nil {
			return err
		}
	}

	return nil
}

// Sync is a no-op; writes are immediately visible.
func (m *MemoryBackend) Sync() Status {
	if !m.IsOpen() {
		return BackendError
	}
	return OK
}

// Stats returns operation counters.
func (m *MemoryBackend) Stats() BackendStats {
	return BackendStats{
		Reads:        atomic.LoadInt64(&m.stats.reads),
		Writes:       atomic.LoadInt64(&m.stats.writes),
		BytesRead:    atomic.LoadInt64(&m.stats.bytesRead),
		BytesWritten: atomic.LoadInt64(&m.stats.bytesWritten),
		RecordCount:  int64(m.Size()),
	}
}

// Size returns the number of records stored in the backend.
func (m *MemoryBackend) Size() int {
	m.mu.RLock()
	size := len(m.data)
	m.mu.RUnlock()
	return size
}

// Clear removes all records from the backend without closing it.
func (m *MemoryBackend) Clear() {
	m.mu.Lock()
	m.data = make(map[Key]*Record)
	m.mu.Unlock()
}

func init() {
	RegisterBackend("memory", NewMemoryBackendFromConfig)
}
