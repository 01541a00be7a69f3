package poolstore

import (
	"fmt"
	"sync/atomic"

	"github.com/LeJamon/goAMMd/internal/storage/poolstore/compression"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBBackend implements a persistent storage backend on LevelDB. It is
// lighter than the pebble backend and suits small deployments.
type LevelDBBackend struct {
	db         *leveldb.DB
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

// NewLevelDBBackend creates a new LevelDB backend.
func NewLevelDBBackend(config *Config) (Backend, error) {
	if config == nil {
		config = DefaultConfig()
	}

	compressor, err := compression.Get(config.Compressor)
	if err != nil {
		return nil, fmt.Errorf("failed to get compressor %s: %w", config.Compressor, err)
	}

	return &LevelDBBackend{
		compressor: compressor,
		config:     config,
	}, nil
}

func (l *LevelDBBackend) Name() string {
	return fmt.Sprintf("leveldb(%s)", l.config.Path)
}

// Open opens or creates the database directory.
func (l *LevelDBBackend) Open(createIfMissing bool) error {
	if !l.open.CompareAndSwap(false, true) {
		return fmt.Errorf("backend already open")
	}

	opts := &opt.Options{
		OpenFilesCacheCapacity: 256,
		BlockCacheCapacity:     16 << 20,
		WriteBuffer:            8 << 20,
		Filter:                 filter.NewBloomFilter(10),
		ErrorIfMissing:         !createIfMissing,
		// Payloads are already compressed by the record codec.
		Compression: opt.NoCompression,
	}

	db, err := leveldb.OpenFile(l.config.Path, opts)
	if err != nil {
		l.open.Store(false)
		return fmt.Errorf("failed to open LevelDB at %s: %w", l.config.Path, err)
	}

	l.db = db
	return nil
}

// Close releases the database.
func (l *LevelDBBackend) Close() error {
	if !l.open.CompareAndSwap(true, false) {
		return nil // Already closed
	}

	var err error
	if l.db != nil {
		err = l.db.Close()
		l.db = nil
	}

	return err
}

func (l *LevelDBBackend) IsOpen() bool {
	return l.open.Load()
}

// writeOption returns the sync mode writes use.
func (l *LevelDBBackend) writeOption() *opt.WriteOptions {
	return &opt.WriteOptions{Sync: l.config.SyncWrites}
}

// Fetch retrieves a single record by key.
func (l *LevelDBBackend) Fetch(key Key) (*Record, Status) {
	if !l.IsOpen() {
		return nil, BackendError
	}

	value, err := l.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, NotFound
	}
	if err != nil {
		return nil, BackendError
	}

	rec, err := decodeRecord(key, value, l.compressor)
	if err != nil {
		return nil, DataCorrupt
	}

	atomic.AddInt64(&l.stats.reads, 1)
	atomic.AddInt64(&l.stats.bytesRead, int64(len(value)))

	return rec, OK
}

// FetchBatch retrieves multiple records with individual gets.
func (l *LevelDBBackend) FetchBatch(keys []Key) ([]*Record, Status) {
	if !l.IsOpen() {
		return nil, BackendError
	}

	results := make([]*Record, len(keys))
	for i, key := range keys {
		rec, status := l.Fetch(key)
		if status == OK {
			results[i] = rec
		} else if status != NotFound {
			return nil, status
		}
	}

	return results, OK
}

// Store saves a single record.
func (l *LevelDBBackend) Store(rec *Record) Status {
	if rec == nil {
		return BackendError
	}

	if !l.IsOpen() {
		return BackendError
	}

	value, err := encodeRecord(rec, l.compressor, l.config.CompressionLevel)
	if err != nil {
		return BackendError
	}

	if err := l.db.Put([]byte(rec.Key), value, l.writeOption()); err != nil {
		return BackendError
	}

	atomic.AddInt64(&l.stats.writes, 1)
	atomic.AddInt64(&l.stats.bytesWritten, int64(len(value)))

	return OK
}

// StoreBatch saves multiple records in one write.
func (l *LevelDBBackend) StoreBatch(recs []*Record) Status {
	if !l.IsOpen() {
		return BackendError
	}

	if len(recs) == 0 {
		return OK
	}

	batch := new(leveldb.Batch)
	var totalBytes int64

	for _, rec := range recs {
		if rec == nil {
			continue
		}

		value, err := encodeRecord(rec, l.compressor, l.config.CompressionLevel)
		if err != nil {
			return BackendError
		}

		batch.Put([]byte(rec.Key), value)
		totalBytes += int64(len(value))
	}

	if err := l.db.Write(batch, l.writeOption()); err != nil {
		return BackendError
	}

	atomic.AddInt64(&l.stats.writes, int64(len(recs)))
	atomic.AddInt64(&l.stats.bytesWritten, totalBytes)

	return OK
}

// Delete removes a record by key.
func (l *LevelDBBackend) Delete(key Key) Status {
	if !l.IsOpen() {
		return BackendError
	}

	if err := l.db.Delete([]byte(key), l.writeOption()); err != nil {
		return BackendError
	}

	return OK
}

// Scan visits all records with the given key prefix in ascending key order.
func (l *LevelDBBackend) Scan(prefix Key, fn func(*Record) error) error {
	if !l.IsOpen() {
		return ErrBackendClosed
	}

	var slice *util.Range
	if len(prefix) > 0 {
		slice = util.BytesPrefix([]byte(prefix))
	}

	iter := l.db.NewIterator(slice, nil)
	defer iter.Release()

	for iter.Next() {
		// Key and value slices are reused by the iterator.
		rec, err := decodeRecord(Key(iter.Key()), iter.Value(), l.compressor)
		if err != nil {
			return err
		}

		if err := fn(rec); err != nil {
			return err
		}
	}

	return iter.Error()
}

// Sync is a no-op. LevelDB has no explicit flush call; with sync writes
// disabled, durability waits for the next sync write.
func (l *LevelDBBackend) Sync() Status {
	if !l.IsOpen() {
		return BackendError
	}
	return OK
}

// Stats returns operation counters.
func (l *LevelDBBackend) Stats() BackendStats {
	return BackendStats{
		Reads:        atomic.LoadInt64(&l.stats.reads),
		Writes:       atomic.LoadInt64(&l.stats.writes),
		BytesRead:    atomic.LoadInt64(&l.stats.bytesRead),
		BytesWritten: atomic.LoadInt64(&l.stats.bytesWritten),
		RecordCount:  -1,
	}
}

func init() {
	RegisterBackend("leveldb", NewLevelDBBackend)
}
