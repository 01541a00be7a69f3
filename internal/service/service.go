// Package service hosts the pool registry and runs every pool operation
// end to end: canonicalize the pair, execute on the pool, persist the
// outcome and publish the event. It is the single writer in front of the
// core; the RPC, WebSocket and gRPC surfaces all call through it.
package service

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/ledger"
	"github.com/LeJamon/goAMMd/internal/core/pool"
	"github.com/LeJamon/goAMMd/internal/events"
	"github.com/LeJamon/goAMMd/internal/storage/history"
	"github.com/LeJamon/goAMMd/internal/storage/poolstore"
)

// Ledger is the custody surface the service needs: transfers for the
// pools plus minting and balance reads for genesis, restore and account
// queries. ledger.Memory satisfies it.
type Ledger interface {
	ledger.Ledger

	Mint(a asset.Asset, account string, amt amount.Amount) error
	Balance(a asset.Asset, account string) amount.Amount
	Balances(account string) map[asset.Asset]amount.Amount
}

// Options configures a Service. Ledger is required; a nil Bus gets a
// fresh one, nil stores disable persistence and history, and a nil
// Logger falls back to the standard logger.
type Options struct {
	Ledger  Ledger
	Bus     *events.Bus
	Store   poolstore.Store
	History history.Store
	Logger  *log.Logger
}

// Service owns the registry and every collaborator a pool operation
// touches.
type Service struct {
	ledger   Ledger
	bus      *events.Bus
	store    poolstore.Store
	history  history.Store
	logger   *log.Logger
	registry *Registry

	closed atomic.Bool
}

// New wires a service from its collaborators and registers the
// persistence handler on the bus.
func New(opts Options) (*Service, error) {
	if opts.Ledger == nil {
		return nil, ErrNilLedger
	}

	bus := opts.Bus
	if bus == nil {
		var err error
		bus, err = events.NewBus(0)
		if err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Service{
		ledger:   opts.Ledger,
		bus:      bus,
		store:    opts.Store,
		history:  opts.History,
		logger:   logger,
		registry: NewRegistry(),
	}

	// The handler runs inside the pool operation, before any
	// subscriber sees the record: the journal and history rows are
	// durable by the time the event fans out.
	bus.RegisterHandler(events.HandlerFunc(s.handleEvent))

	return s, nil
}

// Bus returns the event bus, for subscription surfaces.
func (s *Service) Bus() *events.Bus {
	return s.bus
}

// History returns the history store, or nil when history is disabled.
func (s *Service) History() history.Store {
	return s.history
}

// Restore loads every snapshot from the pool store, rebuilds the pools
// and advances the event sequence past the journal. The ledger is not
// persisted, so each pool account is re-funded to match its restored
// reserves.
func (s *Service) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	states, err := s.store.Snapshots(ctx)
	if err != nil {
		return fmt.Errorf("service: load snapshots: %w", err)
	}

	for _, st := range states {
		pair, err := asset.NewPair(st.AssetA, st.AssetB)
		if err != nil {
			return fmt.Errorf("service: restore snapshot: %w", err)
		}
		p, err := pool.FromState(st, s.ledger, s.bus.BindPool(pair))
		if err != nil {
			return fmt.Errorf("service: restore %s: %w", pair.Key(), err)
		}
		if !st.ReserveA.IsZero() {
			if err := s.ledger.Mint(st.AssetA, st.Account, st.ReserveA); err != nil {
				return fmt.Errorf("service: fund restored pool %s: %w", pair.Key(), err)
			}
		}
		if !st.ReserveB.IsZero() {
			if err := s.ledger.Mint(st.AssetB, st.Account, st.ReserveB); err != nil {
				return fmt.Errorf("service: fund restored pool %s: %w", pair.Key(), err)
			}
		}
		if _, err := s.registry.Add(pair, p); err != nil {
			return fmt.Errorf("service: restore %s: %w", pair.Key(), err)
		}
	}

	last, err := s.store.LastSeq(ctx)
	if err != nil {
		return fmt.Errorf("service: read journal sequence: %w", err)
	}
	s.bus.Advance(last)

	if len(states) > 0 {
		s.logger.Printf("Restored %d pools, journal at sequence %d", len(states), last)
	}
	return nil
}

// Sweep evicts expired snapshot cache entries.
func (s *Service) Sweep() error {
	if s.store == nil {
		return nil
	}
	return s.store.Sweep()
}

// Info summarizes the service for status reporting.
type Info struct {
	Pools         int
	LastSeq       uint64
	DroppedEvents uint64
	StoreStats    *poolstore.Statistics
	HistoryCounts *history.Counts
}

// Info reports pool count, event progress and storage statistics.
func (s *Service) Info(ctx context.Context) (Info, error) {
	if s.closed.Load() {
		return Info{}, ErrClosed
	}

	info := Info{
		Pools:         s.registry.Len(),
		LastSeq:       s.bus.Seq(),
		DroppedEvents: s.bus.Dropped(),
	}
	if s.store != nil {
		stats := s.store.Stats()
		info.StoreStats = &stats
	}
	if s.history != nil {
		counts, err := s.history.Counts(ctx)
		if err != nil {
			return Info{}, err
		}
		info.HistoryCounts = &counts
	}
	return info, nil
}

// Close flushes and closes the stores. The service rejects operations
// afterwards.
func (s *Service) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var firstErr error
	if s.store != nil {
		if err := s.store.Sync(); err != nil {
			s.logger.Printf("Pool store sync failed: %v", err)
			firstErr = err
		}
		if err := s.store.Close(); err != nil {
			s.logger.Printf("Pool store close failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if s.history != nil {
		if err := s.history.Close(ctx); err != nil {
			s.logger.Printf("History store close failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// handleEvent journals the record and mirrors it into the history store
// before any subscriber sees it. It runs inside the pool operation, so
// it must not call back into the pool.
func (s *Service) handleEvent(rec events.Record) {
	ctx := context.Background()

	if s.store != nil {
		if err := s.store.AppendEvent(ctx, rec); err != nil {
			s.logger.Printf("Journal append failed at sequence %d: %v", rec.Seq, err)
		}
	}

	if s.history != nil {
		if trade, ok := history.TradeFromEvent(rec); ok {
			if err := s.history.RecordSwap(ctx, trade); err != nil {
				s.logger.Printf("History insert failed at sequence %d: %v", rec.Seq, err)
			}
		} else if change, ok := history.LiquidityChangeFromEvent(rec); ok {
			if err := s.history.RecordLiquidityChange(ctx, change); err != nil {
				s.logger.Printf("History insert failed at sequence %d: %v", rec.Seq, err)
			}
		}
	}

	if entry, err := s.registry.Get(rec.Pair); err == nil {
		entry.lastSeq.Store(rec.Seq)
	}
}

// persistState snapshots one pool after a committed mutation. The
// operation already succeeded and its event is journaled, so a snapshot
// failure is logged rather than surfaced to the caller.
func (s *Service) persistState(ctx context.Context, entry *Entry) {
	if s.store == nil {
		return
	}
	st := entry.Pool.State()
	if err := s.store.StoreSnapshot(ctx, st, entry.lastSeq.Load()); err != nil {
		s.logger.Printf("Snapshot write failed for %s: %v", entry.Pair.Key(), err)
	}
}
