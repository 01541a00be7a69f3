// Package poolstore persists pool snapshots and the event journal behind a
// pluggable key/value backend. Snapshots hold the latest state of each pool;
// journal records keep the ordered history of committed mutations.
package poolstore

import (
	"encoding/binary"
	"time"
)

// RecordKind distinguishes the two keyspaces the store manages.
type RecordKind uint8

const (
	// KindSnapshot marks a record holding the encoded state of one pool.
	KindSnapshot RecordKind = 1
	// KindJournal marks a record holding one encoded pool event.
	KindJournal RecordKind = 2
)

// String returns the name of the record kind.
func (k RecordKind) String() string {
	switch k {
	case KindSnapshot:
		return "snapshot"
	case KindJournal:
		return "journal"
	default:
		return "unknown"
	}
}

// Valid reports whether the kind is one of the known record kinds.
func (k RecordKind) Valid() bool {
	return k == KindSnapshot || k == KindJournal
}

const (
	snapshotPrefix = "s/"
	journalPrefix  = "j/"
)

// Key identifies a record within a backend. Keys compare bytewise, so the
// journal keyspace stays in sequence order on disk.
type Key string

// SnapshotKey returns the key for the snapshot of the pair with the given
// canonical key (for example "BTC/USD").
func SnapshotKey(pairKey string) Key {
	return Key(snapshotPrefix + pairKey)
}

// JournalKey returns the key for the journal record with the given sequence
// number. The sequence is encoded big-endian so lexicographic key order
// matches numeric order.
func JournalKey(seq uint64) Key {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return Key(journalPrefix + string(buf[:]))
}

// SnapshotKeyspace returns the prefix covering all snapshot keys.
func SnapshotKeyspace() Key { return Key(snapshotPrefix) }

// JournalKeyspace returns the prefix covering all journal keys.
func JournalKeyspace() Key { return Key(journalPrefix) }

// Record is a single stored object: a pool snapshot or a journal entry.
type Record struct {
	Kind      RecordKind // Which keyspace the record belongs to
	Key       Key        // Storage key
	Seq       uint64     // Event sequence that produced this record
	Data      []byte     // Encoded payload
	CreatedAt time.Time  // When the record was written
}

// Size returns the payload size in bytes.
func (r *Record) Size() int {
	return len(r.Data)
}

// Validate checks that the record can be stored.
func (r *Record) Validate() error {
	if r == nil {
		return ErrInvalidRecord
	}
	if !r.Kind.Valid() {
		return ErrInvalidRecord
	}
	if len(r.Key) == 0 {
		return ErrInvalidKey
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	data := make([]byte, len(r.Data))
	copy(data, r.Data)
	return &Record{
		Kind:      r.Kind,
		Key:       r.Key,
		Seq:       r.Seq,
		Data:      data,
		CreatedAt: r.CreatedAt,
	}
}

// Status is the result code returned by backend operations.
type Status int

const (
	// OK indicates the operation succeeded.
	OK Status = iota
	// NotFound indicates the requested key does not exist.
	NotFound
	// DataCorrupt indicates stored data failed to decode.
	DataCorrupt
	// BackendError indicates a storage-level failure.
	BackendError
)

// String returns the name of the status code.
func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case NotFound:
		return "not found"
	case DataCorrupt:
		return "data corrupt"
	case BackendError:
		return "backend error"
	default:
		return "unknown"
	}
}

// Backend is the low-level storage interface. Implementations must be safe
// for concurrent use.
type Backend interface {
	// Name returns the backend name as registered with RegisterBackend.
	Name() string

	// Open prepares the backend for use.
	Open(createIfMissing bool) error

	// Close releases the backend. Further operations fail.
	Close() error

	// IsOpen reports whether the backend is currently open.
	IsOpen() bool

	// Fetch retrieves a single record by key.
	Fetch(key Key) (*Record, Status)

	// FetchBatch retrieves multiple records. Missing keys yield nil entries.
	FetchBatch(keys []Key) ([]*Record, Status)

	// Store persists a single record.
	Store(rec *Record) Status

	// StoreBatch persists multiple records.
	StoreBatch(recs []*Record) Status

	// Delete removes a record by key. Deleting a missing key is not an error.
	Delete(key Key) Status

	// Scan visits every record whose key starts with prefix, in ascending
	// key order. Returning an error from fn stops the scan.
	Scan(prefix Key, fn func(*Record) error) error

	// Sync flushes pending writes to stable storage.
	Sync() Status

	// Stats returns operation counters for this backend.
	Stats() BackendStats
}

// BackendStats holds operation counters for a backend.
type BackendStats struct {
	Reads        int64 // Number of read operations
	Writes       int64 // Number of write operations
	BytesRead    int64 // Total payload bytes read
	BytesWritten int64 // Total payload bytes written
	RecordCount  int64 // Number of records stored, -1 if unknown
}

// Statistics reports store-level performance counters.
type Statistics struct {
	Reads        uint64
	Writes       uint64
	CacheHits    uint64
	CacheMisses  uint64
	ReadBytes    uint64
	WriteBytes   uint64
	CacheSize    uint64
	CacheMaxSize uint64
	BackendName  string
}
