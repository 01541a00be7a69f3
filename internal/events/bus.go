package events

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/pool"
)

// DefaultRecentSize bounds the in-memory cache of recent records.
const DefaultRecentSize = 1024

// DefaultSubscriberBuffer is the per-subscriber channel depth.
const DefaultSubscriberBuffer = 64

// Handler consumes each record synchronously before fan-out. Handlers run
// inside the originating pool operation and must not call back into the
// pool; failures are theirs to log.
type Handler interface {
	HandleEvent(rec Record)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(rec Record)

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(rec Record) { f(rec) }

// Bus assigns sequence numbers to pool notifications, hands each record to
// the registered handlers in order, caches it, and fans it out to
// subscribers. Slow subscribers lose records rather than stall the pools.
type Bus struct {
	mu       sync.RWMutex
	seq      uint64
	handlers []Handler
	subs     map[uint64]*subscriber
	nextSub  uint64
	recent   *lru.Cache[uint64, Record]
	dropped  uint64

	now func() time.Time
}

type subscriber struct {
	id   uint64
	pair string // empty subscribes to every pool
	ch   chan Record
}

// NewBus creates a bus caching up to recentSize records.
func NewBus(recentSize int) (*Bus, error) {
	if recentSize <= 0 {
		recentSize = DefaultRecentSize
	}
	cache, err := lru.New[uint64, Record](recentSize)
	if err != nil {
		return nil, fmt.Errorf("events: recent cache: %w", err)
	}
	return &Bus{
		subs:   make(map[uint64]*subscriber),
		recent: cache,
		now:    time.Now,
	}, nil
}

// RegisterHandler appends a synchronous handler. Handlers registered first
// run first.
func (b *Bus) RegisterHandler(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Advance moves the sequence counter forward to seq, used when resuming
// from a persisted journal. It never moves the counter backwards.
func (b *Bus) Advance(seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq > b.seq {
		b.seq = seq
	}
}

// Seq returns the last assigned sequence number.
func (b *Bus) Seq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// Dropped returns the number of records lost to full subscriber buffers.
func (b *Bus) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// BindPool returns the sink a pool for the given pair should emit into.
func (b *Bus) BindPool(pair asset.Pair) pool.Sink {
	return &poolSink{bus: b, pair: pair.Key()}
}

// Subscribe registers a subscriber for one pair, or all pairs when pair is
// empty. The returned subscription's channel is closed by Close.
func (b *Bus) Subscribe(pair string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSub++
	sub := &subscriber{
		id:   b.nextSub,
		pair: pair,
		ch:   make(chan Record, buffer),
	}
	b.subs[sub.id] = sub
	return &Subscription{id: sub.id, C: sub.ch, bus: b}
}

// Recent returns up to limit cached records in ascending sequence order.
func (b *Bus) Recent(limit int) []Record {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := b.recent.Keys() // oldest first
	if limit > 0 && len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		if rec, ok := b.recent.Peek(k); ok {
			out = append(out, rec)
		}
	}
	return out
}

// publish stamps, persists via handlers, caches and fans out one record.
func (b *Bus) publish(rec Record) {
	b.mu.Lock()
	b.seq++
	rec.Seq = b.seq
	rec.Time = b.now().UTC()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	// Handlers see the record before any subscriber does
	for _, h := range handlers {
		h.HandleEvent(rec)
	}

	b.mu.Lock()
	b.recent.Add(rec.Seq, rec)
	for _, sub := range b.subs {
		if sub.pair != "" && sub.pair != rec.Pair {
			continue
		}
		select {
		case sub.ch <- rec:
		default:
			b.dropped++
		}
	}
	b.mu.Unlock()
}

// Subscription is a live feed of records for one subscriber.
type Subscription struct {
	id  uint64
	C   <-chan Record
	bus *Bus

	closeOnce sync.Once
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if sub, ok := s.bus.subs[s.id]; ok {
			delete(s.bus.subs, s.id)
			close(sub.ch)
		}
	})
}

// poolSink adapts one pool's notifications into bus records.
type poolSink struct {
	bus  *Bus
	pair string
}

func (s *poolSink) LiquidityAdded(e pool.LiquidityAdded) {
	s.bus.publish(Record{
		Kind: KindLiquidityAdded,
		Pair: s.pair,
		Liquidity: &LiquidityPayload{
			Provider: e.Provider,
			AmountA:  e.AmountA,
			AmountB:  e.AmountB,
			Shares:   e.SharesMinted,
		},
	})
}

func (s *poolSink) LiquidityRemoved(e pool.LiquidityRemoved) {
	s.bus.publish(Record{
		Kind: KindLiquidityRemoved,
		Pair: s.pair,
		Liquidity: &LiquidityPayload{
			Provider: e.Provider,
			AmountA:  e.AmountA,
			AmountB:  e.AmountB,
			Shares:   e.SharesBurned,
		},
	})
}

func (s *poolSink) Swap(e pool.Swap) {
	s.bus.publish(Record{
		Kind: KindSwap,
		Pair: s.pair,
		Swap: &SwapPayload{
			Trader:    e.Trader,
			AssetIn:   e.AssetIn,
			AssetOut:  e.AssetOut,
			AmountIn:  e.AmountIn,
			AmountOut: e.AmountOut,
		},
	})
}
