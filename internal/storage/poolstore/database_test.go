package poolstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/ledger"
	"github.com/LeJamon/goAMMd/internal/core/pool"
	"github.com/LeJamon/goAMMd/internal/events"
	"github.com/LeJamon/goAMMd/internal/storage/poolstore"
)

// newFundedLedger builds a memory ledger whose pool account holds the
// snapshot's reserves.
func newFundedLedger(t *testing.T, st pool.State) *ledger.Memory {
	t.Helper()

	lgr := ledger.NewMemory()
	if !st.ReserveA.IsZero() {
		if err := lgr.Mint(st.AssetA, st.Account, st.ReserveA); err != nil {
			t.Fatalf("mint %s: %v", st.AssetA, err)
		}
	}
	if !st.ReserveB.IsZero() {
		if err := lgr.Mint(st.AssetB, st.Account, st.ReserveB); err != nil {
			t.Fatalf("mint %s: %v", st.AssetB, err)
		}
	}
	return lgr
}

func newMemoryStore(t *testing.T) *poolstore.StoreImpl {
	t.Helper()

	backend := poolstore.NewMemoryBackend()
	if err := backend.Open(true); err != nil {
		t.Fatalf("failed to open backend: %v", err)
	}
	store := poolstore.NewStore(backend, 16, time.Minute)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreSnapshotLifecycle(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	// Nothing stored yet.
	st, seq, err := store.FetchSnapshot(ctx, "BTC/USD")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if st != nil || seq != 0 {
		t.Fatal("expected no snapshot before the first store")
	}

	want := testState()
	if err := store.StoreSnapshot(ctx, want, 3); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	got, seq, err := store.FetchSnapshot(ctx, "BTC/USD")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got == nil {
		t.Fatal("snapshot missing after store")
	}
	if seq != 3 {
		t.Errorf("expected seq 3, got %d", seq)
	}
	statesEqual(t, *got, want)

	// Overwrite with newer state.
	want.Shares["carol"] = want.TotalShares
	want.TotalShares, err = want.TotalShares.Add(want.TotalShares)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.StoreSnapshot(ctx, want, 4); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	got, seq, err = store.FetchSnapshot(ctx, "BTC/USD")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if seq != 4 {
		t.Errorf("expected seq 4 after overwrite, got %d", seq)
	}
	statesEqual(t, *got, want)
}

func TestStoreSnapshotCache(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	if err := store.StoreSnapshot(ctx, testState(), 1); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := store.FetchSnapshot(ctx, "BTC/USD"); err != nil {
			t.Fatalf("fetch %d failed: %v", i, err)
		}
	}

	stats := store.Stats()
	if stats.Reads != 3 {
		t.Errorf("expected 3 reads, got %d", stats.Reads)
	}
	// The store is populated into the cache on write, so every read hits.
	if stats.CacheHits != 3 {
		t.Errorf("expected 3 cache hits, got %d", stats.CacheHits)
	}
	if stats.Writes != 1 {
		t.Errorf("expected 1 write, got %d", stats.Writes)
	}
	if stats.BackendName != "memory" {
		t.Errorf("unexpected backend name %q", stats.BackendName)
	}
}

func TestStoreSnapshotsListing(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	first := testState()
	second := pool.State{
		AssetA:      "ETH",
		AssetB:      "XRP",
		Account:     "pool-eth-xrp",
		ReserveA:    first.ReserveA,
		ReserveB:    first.ReserveB,
		TotalShares: first.TotalShares,
		Shares: map[string]amount.Amount{
			"carol": first.TotalShares,
		},
	}

	// Store in reverse pair order; the listing comes back sorted by key.
	if err := store.StoreSnapshot(ctx, second, 2); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := store.StoreSnapshot(ctx, first, 1); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	states, err := store.Snapshots(ctx)
	if err != nil {
		t.Fatalf("snapshots failed: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(states))
	}
	statesEqual(t, states[0], first)
	statesEqual(t, states[1], second)
}

func TestStoreJournal(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	last, err := store.LastSeq(ctx)
	if err != nil {
		t.Fatalf("last seq failed: %v", err)
	}
	if last != 0 {
		t.Errorf("expected empty journal, got seq %d", last)
	}

	records := []events.Record{
		liquidityRecord(1),
		swapRecord(2),
		swapRecord(3),
	}
	for _, rec := range records {
		if err := store.AppendEvent(ctx, rec); err != nil {
			t.Fatalf("append seq %d failed: %v", rec.Seq, err)
		}
	}

	t.Run("ReplayAll", func(t *testing.T) {
		var seqs []uint64
		err := store.Events(ctx, 0, func(rec events.Record) error {
			seqs = append(seqs, rec.Seq)
			return nil
		})
		if err != nil {
			t.Fatalf("replay failed: %v", err)
		}
		if len(seqs) != 3 || seqs[0] != 1 || seqs[2] != 3 {
			t.Errorf("unexpected replay order %v", seqs)
		}
	})

	t.Run("ReplayFrom", func(t *testing.T) {
		var seqs []uint64
		err := store.Events(ctx, 3, func(rec events.Record) error {
			seqs = append(seqs, rec.Seq)
			return nil
		})
		if err != nil {
			t.Fatalf("replay failed: %v", err)
		}
		if len(seqs) != 1 || seqs[0] != 3 {
			t.Errorf("expected only seq 3, got %v", seqs)
		}
	})

	t.Run("LastSeq", func(t *testing.T) {
		last, err := store.LastSeq(ctx)
		if err != nil {
			t.Fatalf("last seq failed: %v", err)
		}
		if last != 3 {
			t.Errorf("expected last seq 3, got %d", last)
		}
	})

	t.Run("PayloadSurvives", func(t *testing.T) {
		var got events.Record
		err := store.Events(ctx, 2, func(rec events.Record) error {
			if rec.Seq == 2 {
				got = rec
			}
			return nil
		})
		if err != nil {
			t.Fatalf("replay failed: %v", err)
		}
		if got.Swap == nil || got.Swap.Trader != "bob" {
			t.Errorf("swap payload damaged: %+v", got)
		}
	})
}

func TestStoreContextCancellation(t *testing.T) {
	store := newMemoryStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.StoreSnapshot(ctx, testState(), 1); err == nil {
		t.Error("expected context error on store")
	}
	if _, _, err := store.FetchSnapshot(ctx, "BTC/USD"); err == nil {
		t.Error("expected context error on fetch")
	}
	if err := store.AppendEvent(ctx, swapRecord(1)); err == nil {
		t.Error("expected context error on append")
	}
}

// TestPersistentBackends runs a store/reopen/fetch cycle against each disk
// backend to verify that data survives a restart.
func TestPersistentBackends(t *testing.T) {
	for _, name := range []string{"pebble", "leveldb"} {
		t.Run(name, func(t *testing.T) {
			if !poolstore.IsBackendAvailable(name) {
				t.Fatalf("backend %q not registered", name)
			}

			cfg := poolstore.DefaultConfig()
			cfg.ApplyOptions(
				poolstore.WithBackend(name),
				poolstore.WithPath(filepath.Join(t.TempDir(), name)),
				poolstore.WithCacheSize(0),
				poolstore.WithSyncWrites(true),
			)

			ctx := context.Background()
			want := testState()

			store, err := poolstore.Open(cfg)
			if err != nil {
				t.Fatalf("open failed: %v", err)
			}

			if err := store.StoreSnapshot(ctx, want, 7); err != nil {
				store.Close()
				t.Fatalf("store failed: %v", err)
			}
			if err := store.AppendEvent(ctx, swapRecord(7)); err != nil {
				store.Close()
				t.Fatalf("append failed: %v", err)
			}
			if err := store.Sync(); err != nil {
				store.Close()
				t.Fatalf("sync failed: %v", err)
			}
			if err := store.Close(); err != nil {
				t.Fatalf("close failed: %v", err)
			}

			// Reopen and verify.
			store, err = poolstore.Open(cfg)
			if err != nil {
				t.Fatalf("reopen failed: %v", err)
			}
			defer store.Close()

			got, seq, err := store.FetchSnapshot(ctx, "BTC/USD")
			if err != nil {
				t.Fatalf("fetch after reopen failed: %v", err)
			}
			if got == nil {
				t.Fatal("snapshot lost across restart")
			}
			if seq != 7 {
				t.Errorf("expected seq 7, got %d", seq)
			}
			statesEqual(t, *got, want)

			last, err := store.LastSeq(ctx)
			if err != nil {
				t.Fatalf("last seq failed: %v", err)
			}
			if last != 7 {
				t.Errorf("expected journal seq 7, got %d", last)
			}
		})
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := poolstore.DefaultConfig()
	cfg.Backend = ""

	if _, err := poolstore.Open(cfg); err == nil {
		t.Error("expected error for empty backend")
	}

	cfg = poolstore.DefaultConfig()
	cfg.Backend = "cassandra"
	cfg.Path = t.TempDir()

	if _, err := poolstore.Open(cfg); err == nil {
		t.Error("expected error for unregistered backend")
	}
}
