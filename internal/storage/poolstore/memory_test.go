package poolstore_test

import (
	"errors"
	"testing"
	"time"

	"github.com/LeJamon/goAMMd/internal/storage/poolstore"
)

func journalTestRecord(seq uint64, payload string) *poolstore.Record {
	return &poolstore.Record{
		Kind:      poolstore.KindJournal,
		Key:       poolstore.JournalKey(seq),
		Seq:       seq,
		Data:      []byte(payload),
		CreatedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func TestMemoryBackend(t *testing.T) {
	t.Run("Creation", func(t *testing.T) {
		backend := poolstore.NewMemoryBackend()
		if backend == nil {
			t.Fatal("NewMemoryBackend returned nil")
		}

		if backend.Name() != "memory" {
			t.Errorf("expected name 'memory', got %q", backend.Name())
		}
	})

	t.Run("OpenClose", func(t *testing.T) {
		backend := poolstore.NewMemoryBackend()

		if backend.IsOpen() {
			t.Error("backend should not be open initially")
		}

		if err := backend.Open(true); err != nil {
			t.Fatalf("failed to open backend: %v", err)
		}

		if !backend.IsOpen() {
			t.Error("backend should be open after Open()")
		}

		if err := backend.Open(true); err == nil {
			t.Error("double open should fail")
		}

		if err := backend.Close(); err != nil {
			t.Errorf("failed to close backend: %v", err)
		}

		if backend.IsOpen() {
			t.Error("backend should not be open after Close()")
		}
	})

	t.Run("StoreAndFetch", func(t *testing.T) {
		backend := poolstore.NewMemoryBackend()
		if err := backend.Open(true); err != nil {
			t.Fatalf("failed to open backend: %v", err)
		}
		defer backend.Close()

		rec := journalTestRecord(1, "test data for memory backend")

		if status := backend.Store(rec); status != poolstore.OK {
			t.Fatalf("failed to store record: %v", status)
		}

		fetched, status := backend.Fetch(rec.Key)
		if status != poolstore.OK {
			t.Fatalf("failed to fetch record: %v", status)
		}

		if fetched == nil {
			t.Fatal("fetched record is nil")
		}

		if fetched.Key != rec.Key {
			t.Error("fetched key doesn't match")
		}

		if string(fetched.Data) != string(rec.Data) {
			t.Error("fetched data doesn't match")
		}

		// Mutating the fetched copy must not affect the stored record.
		fetched.Data[0] = 'X'
		again, status := backend.Fetch(rec.Key)
		if status != poolstore.OK {
			t.Fatalf("failed to refetch record: %v", status)
		}
		if string(again.Data) != string(rec.Data) {
			t.Error("stored record was mutated through a fetched copy")
		}
	})

	t.Run("FetchMissing", func(t *testing.T) {
		backend := poolstore.NewMemoryBackend()
		if err := backend.Open(true); err != nil {
			t.Fatalf("failed to open backend: %v", err)
		}
		defer backend.Close()

		if _, status := backend.Fetch(poolstore.JournalKey(404)); status != poolstore.NotFound {
			t.Errorf("expected NotFound, got %v", status)
		}
	})

	t.Run("FetchBatch", func(t *testing.T) {
		backend := poolstore.NewMemoryBackend()
		if err := backend.Open(true); err != nil {
			t.Fatalf("failed to open backend: %v", err)
		}
		defer backend.Close()

		recs := []*poolstore.Record{
			journalTestRecord(1, "one"),
			journalTestRecord(2, "two"),
		}
		if status := backend.StoreBatch(recs); status != poolstore.OK {
			t.Fatalf("failed to store batch: %v", status)
		}

		keys := []poolstore.Key{
			poolstore.JournalKey(1),
			poolstore.JournalKey(99),
			poolstore.JournalKey(2),
		}
		results, status := backend.FetchBatch(keys)
		if status != poolstore.OK {
			t.Fatalf("failed to fetch batch: %v", status)
		}

		if results[0] == nil || string(results[0].Data) != "one" {
			t.Error("first result mismatch")
		}
		if results[1] != nil {
			t.Error("missing key should yield nil")
		}
		if results[2] == nil || string(results[2].Data) != "two" {
			t.Error("third result mismatch")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		backend := poolstore.NewMemoryBackend()
		if err := backend.Open(true); err != nil {
			t.Fatalf("failed to open backend: %v", err)
		}
		defer backend.Close()

		rec := journalTestRecord(5, "short lived")
		if status := backend.Store(rec); status != poolstore.OK {
			t.Fatalf("failed to store record: %v", status)
		}

		if status := backend.Delete(rec.Key); status != poolstore.OK {
			t.Fatalf("failed to delete record: %v", status)
		}

		if _, status := backend.Fetch(rec.Key); status != poolstore.NotFound {
			t.Errorf("expected NotFound after delete, got %v", status)
		}

		// Deleting a missing key is not an error.
		if status := backend.Delete(rec.Key); status != poolstore.OK {
			t.Errorf("expected OK deleting missing key, got %v", status)
		}
	})

	t.Run("ScanOrder", func(t *testing.T) {
		backend := poolstore.NewMemoryBackend()
		if err := backend.Open(true); err != nil {
			t.Fatalf("failed to open backend: %v", err)
		}
		defer backend.Close()

		// Store out of order, including a snapshot that must not show up
		// in a journal scan.
		for _, seq := range []uint64{300, 2, 256, 1} {
			if status := backend.Store(journalTestRecord(seq, "x")); status != poolstore.OK {
				t.Fatalf("failed to store record %d: %v", seq, status)
			}
		}
		snap := &poolstore.Record{
			Kind: poolstore.KindSnapshot,
			Key:  poolstore.SnapshotKey("BTC/USD"),
			Data: []byte("snapshot"),
		}
		if status := backend.Store(snap); status != poolstore.OK {
			t.Fatalf("failed to store snapshot: %v", status)
		}

		var seqs []uint64
		err := backend.Scan(poolstore.JournalKeyspace(), func(rec *poolstore.Record) error {
			seqs = append(seqs, rec.Seq)
			return nil
		})
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}

		want := []uint64{1, 2, 256, 300}
		if len(seqs) != len(want) {
			t.Fatalf("expected %d records, got %d", len(want), len(seqs))
		}
		for i := range want {
			if seqs[i] != want[i] {
				t.Errorf("position %d: expected seq %d, got %d", i, want[i], seqs[i])
			}
		}
	})

	t.Run("ScanStopsOnError", func(t *testing.T) {
		backend := poolstore.NewMemoryBackend()
		if err := backend.Open(true); err != nil {
			t.Fatalf("failed to open backend: %v", err)
		}
		defer backend.Close()

		for seq := uint64(1); seq <= 5; seq++ {
			backend.Store(journalTestRecord(seq, "x"))
		}

		stop := errors.New("stop")
		visited := 0
		err := backend.Scan(poolstore.JournalKeyspace(), func(rec *poolstore.Record) error {
			visited++
			if visited == 2 {
				return stop
			}
			return nil
		})

		if !errors.Is(err, stop) {
			t.Errorf("expected stop error, got %v", err)
		}
		if visited != 2 {
			t.Errorf("expected 2 visits, got %d", visited)
		}
	})

	t.Run("ClosedBackend", func(t *testing.T) {
		backend := poolstore.NewMemoryBackend()

		if status := backend.Store(journalTestRecord(1, "x")); status != poolstore.BackendError {
			t.Errorf("expected BackendError on closed store, got %v", status)
		}
		if _, status := backend.Fetch(poolstore.JournalKey(1)); status != poolstore.BackendError {
			t.Errorf("expected BackendError on closed fetch, got %v", status)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		backend := poolstore.NewMemoryBackend()
		if err := backend.Open(true); err != nil {
			t.Fatalf("failed to open backend: %v", err)
		}
		defer backend.Close()

		rec := journalTestRecord(1, "12345")
		backend.Store(rec)
		backend.Fetch(rec.Key)

		stats := backend.Stats()
		if stats.Writes != 1 || stats.Reads != 1 {
			t.Errorf("unexpected counters: %+v", stats)
		}
		if stats.BytesWritten != 5 || stats.BytesRead != 5 {
			t.Errorf("unexpected byte counters: %+v", stats)
		}
		if stats.RecordCount != 1 {
			t.Errorf("expected 1 record, got %d", stats.RecordCount)
		}
	})
}
