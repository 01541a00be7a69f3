package poolstore

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/LeJamon/goAMMd/internal/storage/poolstore/compression"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
)

const (
	// pebbleCacheSize bounds the block cache. Pool snapshots and journal
	// records are small, so a modest cache covers the working set.
	pebbleCacheSize = 64 << 20
)

// PebbleBackend implements a persistent LSM-tree storage backend.
type PebbleBackend struct {
	db         *pebble.DB
	compressor compression.Compressor
	config     *Config

	open atomic.Bool

	// Counters, updated atomically.
	stats struct {
		reads        int64
		writes       int64
		bytesRead    int64
		bytesWritten int64
	}
}

// NewPebbleBackend creates a new PebbleDB backend.
func NewPebbleBackend(config *Config) (Backend, error) {
	if config == nil {
		config = DefaultConfig()
	}

	compressor, err := compression.Get(config.Compressor)
	if err != nil {
		return nil, fmt.Errorf("failed to get compressor %s: %w", config.Compressor, err)
	}

	return &PebbleBackend{
		compressor: compressor,
		config:     config,
	}, nil
}

func (p *PebbleBackend) Name() string {
	return fmt.Sprintf("pebble(%s)", p.config.Path)
}

// Open creates the directory if allowed and opens the database.
func (p *PebbleBackend) Open(createIfMissing bool) error {
	if !p.open.CompareAndSwap(false, true) {
		return fmt.Errorf("backend already open")
	}

	if createIfMissing {
		if err := os.MkdirAll(p.config.Path, 0755); err != nil {
			p.open.Store(false)
			return fmt.Errorf("failed to create directory %s: %w", p.config.Path, err)
		}
	}

	db, err := pebble.Open(p.config.Path, p.buildOptions())
	if err != nil {
		p.open.Store(false)
		return fmt.Errorf("failed to open PebbleDB at %s: %w", p.config.Path, err)
	}

	p.db = db
	return nil
}

// buildOptions creates PebbleDB options tuned for the store's workload:
// point lookups by pair key and an append-mostly journal keyspace.
func (p *PebbleBackend) buildOptions() *pebble.Options {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(pebbleCacheSize),
		MaxOpenFiles: 1000,
		MemTableSize: 16 << 20,
		MaxConcurrentCompactions: func() int {
			return runtime.NumCPU()
		},
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 20,
		LBaseMaxBytes:         64 << 20,
		Levels:                make([]pebble.LevelOptions, 7),
		DisableWAL:            false,
	}

	for i := range opts.Levels {
		opts.Levels[i] = pebble.LevelOptions{
			BlockSize:      32 << 10,
			FilterPolicy:   bloom.FilterPolicy(10),
			FilterType:     pebble.TableFilter,
			TargetFileSize: int64(4<<20) << uint(i),
			// Payloads are already compressed by the record codec.
			Compression: pebble.NoCompression,
		}
		if opts.Levels[i].TargetFileSize > 128<<20 {
			opts.Levels[i].TargetFileSize = 128 << 20
		}
	}

	return opts
}

// Close flushes memtables and releases the database.
func (p *PebbleBackend) Close() error {
	if !p.open.CompareAndSwap(true, false) {
		return nil // Already closed
	}

	var err error
	if p.db != nil {
		if flushErr := p.db.Flush(); flushErr != nil {
			err = flushErr
		}
		if closeErr := p.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		p.db = nil
	}

	return err
}

func (p *PebbleBackend) IsOpen() bool {
	return p.open.Load()
}

// writeOption returns the sync mode commits use.
func (p *PebbleBackend) writeOption() *pebble.WriteOptions {
	if p.config.SyncWrites {
		return pebble.Sync
	}
	return pebble.NoSync
}

// Fetch retrieves a single record by key.
func (p *PebbleBackend) Fetch(key Key) (*Record, Status) {
	if !p.IsOpen() {
		return nil, BackendError
	}

	value, closer, err := p.db.Get([]byte(key))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, NotFound
		}
		return nil, BackendError
	}
	defer closer.Close()

	rec, err := decodeRecord(key, value, p.compressor)
	if err != nil {
		return nil, DataCorrupt
	}

	atomic.AddInt64(&p.stats.reads, 1)
	atomic.AddInt64(&p.stats.bytesRead, int64(len(value)))

	return rec, OK
}

// FetchBatch retrieves multiple records. PebbleDB has no multi-get, so this
// is point lookups served out of the block cache.
func (p *PebbleBackend) FetchBatch(keys []Key) ([]*Record, Status) {
	if !p.IsOpen() {
		return nil, BackendError
	}

	results := make([]*Record, len(keys))
	for i, key := range keys {
		rec, status := p.Fetch(key)
		if status == OK {
			results[i] = rec
		} else if status != NotFound {
			return nil, status
		}
	}

	return results, OK
}

// Store saves a single record.
func (p *PebbleBackend) Store(rec *Record) Status {
	if rec == nil {
		return BackendError
	}

	if !p.IsOpen() {
		return BackendError
	}

	value, err := encodeRecord(rec, p.compressor, p.config.CompressionLevel)
	if err != nil {
		return BackendError
	}

	if err := p.db.Set([]byte(rec.Key), value, p.writeOption()); err != nil {
		return BackendError
	}

	atomic.AddInt64(&p.stats.writes, 1)
	atomic.AddInt64(&p.stats.bytesWritten, int64(len(value)))

	return OK
}

// StoreBatch saves multiple records in one commit.
func (p *PebbleBackend) StoreBatch(recs []*Record) Status {
	if !p.IsOpen() {
		return BackendError
	}

	if len(recs) == 0 {
		return OK
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	var totalBytes int64

	for _, rec := range recs {
		if rec == nil {
			continue
		}

		value, err := encodeRecord(rec, p.compressor, p.config.CompressionLevel)
		if err != nil {
			return BackendError
		}

		if err := batch.Set([]byte(rec.Key), value, nil); err != nil {
			return BackendError
		}

		totalBytes += int64(len(value))
	}

	if err := batch.Commit(p.writeOption()); err != nil {
		return BackendError
	}

	atomic.AddInt64(&p.stats.writes, int64(len(recs)))
	atomic.AddInt64(&p.stats.bytesWritten, totalBytes)

	return OK
}

// Delete removes a record by key.
func (p *PebbleBackend) Delete(key Key) Status {
	if !p.IsOpen() {
		return BackendError
	}

	if err := p.db.Delete([]byte(key), p.writeOption()); err != nil {
		return BackendError
	}

	return OK
}

// Scan visits all records with the given key prefix in ascending key order.
func (p *PebbleBackend) Scan(prefix Key, fn func(*Record) error) error {
	if !p.IsOpen() {
		return ErrBackendClosed
	}

	opts := &pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound([]byte(prefix)),
	}

	iter, err := p.db.NewIter(opts)
	if err != nil {
		return fmt.Errorf("iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(Key(iter.Key()), iter.Value(), p.compressor)
		if err != nil {
			return err
		}

		if err := fn(rec); err != nil {
			return err
		}
	}

	return iter.Error()
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, or nil for an empty prefix (unbounded).
func prefixUpperBound(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil // Prefix is all 0xff, no upper bound
}

// Sync flushes memtables to disk.
func (p *PebbleBackend) Sync() Status {
	if !p.IsOpen() {
		return BackendError
	}

	if err := p.db.Flush(); err != nil {
		return BackendError
	}

	return OK
}

// Stats returns operation counters.
func (p *PebbleBackend) Stats() BackendStats {
	return BackendStats{
		Reads:        atomic.LoadInt64(&p.stats.reads),
		Writes:       atomic.LoadInt64(&p.stats.writes),
		BytesRead:    atomic.LoadInt64(&p.stats.bytesRead),
		BytesWritten: atomic.LoadInt64(&p.stats.bytesWritten),
		RecordCount:  -1,
	}
}

func init() {
	RegisterBackend("pebble", NewPebbleBackend)
}
