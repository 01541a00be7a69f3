package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/pool"
)

func testPair(t *testing.T) asset.Pair {
	t.Helper()
	p, err := asset.NewPair("USD", "BTC")
	require.NoError(t, err)
	return p
}

func TestBusSequencing(t *testing.T) {
	bus, err := NewBus(16)
	require.NoError(t, err)
	bus.now = func() time.Time { return time.Unix(1700000000, 0) }

	sink := bus.BindPool(testPair(t))

	sink.LiquidityAdded(pool.LiquidityAdded{
		Provider:     "alice",
		AmountA:      amount.FromUint64(100),
		AmountB:      amount.FromUint64(200),
		SharesMinted: amount.FromUint64(141),
	})
	sink.Swap(pool.Swap{
		Trader:    "bob",
		AssetIn:   "USD",
		AssetOut:  "BTC",
		AmountIn:  amount.FromUint64(10),
		AmountOut: amount.FromUint64(18),
	})

	assert.Equal(t, uint64(2), bus.Seq())

	recent := bus.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(1), recent[0].Seq)
	assert.Equal(t, KindLiquidityAdded, recent[0].Kind)
	assert.Equal(t, "BTC/USD", recent[0].Pair)
	require.NotNil(t, recent[0].Liquidity)
	assert.Equal(t, "alice", recent[0].Liquidity.Provider)
	assert.Equal(t, "141", recent[0].Liquidity.Shares.String())

	assert.Equal(t, uint64(2), recent[1].Seq)
	assert.Equal(t, KindSwap, recent[1].Kind)
	require.NotNil(t, recent[1].Swap)
	assert.Equal(t, "bob", recent[1].Swap.Trader)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), recent[1].Time)
}

func TestBusAdvance(t *testing.T) {
	bus, err := NewBus(16)
	require.NoError(t, err)

	bus.Advance(40)
	assert.Equal(t, uint64(40), bus.Seq())

	// Never backwards
	bus.Advance(10)
	assert.Equal(t, uint64(40), bus.Seq())

	sink := bus.BindPool(testPair(t))
	sink.Swap(pool.Swap{Trader: "bob"})
	assert.Equal(t, uint64(41), bus.Seq())
}

func TestBusHandlersRunInOrder(t *testing.T) {
	bus, err := NewBus(16)
	require.NoError(t, err)

	var order []string
	bus.RegisterHandler(HandlerFunc(func(rec Record) {
		order = append(order, "journal")
	}))
	bus.RegisterHandler(HandlerFunc(func(rec Record) {
		order = append(order, "history")
	}))

	bus.BindPool(testPair(t)).Swap(pool.Swap{Trader: "bob"})

	assert.Equal(t, []string{"journal", "history"}, order)
}

func TestBusSubscribeAndFilter(t *testing.T) {
	bus, err := NewBus(16)
	require.NoError(t, err)

	all := bus.Subscribe("", 8)
	defer all.Close()
	filtered := bus.Subscribe("BTC/USD", 8)
	defer filtered.Close()
	other := bus.Subscribe("DAI/ETH", 8)
	defer other.Close()

	bus.BindPool(testPair(t)).Swap(pool.Swap{Trader: "bob"})

	select {
	case rec := <-all.C:
		assert.Equal(t, "BTC/USD", rec.Pair)
	default:
		t.Fatal("all-pairs subscriber received nothing")
	}

	select {
	case rec := <-filtered.C:
		assert.Equal(t, KindSwap, rec.Kind)
	default:
		t.Fatal("matching subscriber received nothing")
	}

	select {
	case rec := <-other.C:
		t.Fatalf("non-matching subscriber received %v", rec)
	default:
	}
}

func TestBusSlowSubscriberDropsRecords(t *testing.T) {
	bus, err := NewBus(16)
	require.NoError(t, err)

	sub := bus.Subscribe("", 1)
	defer sub.Close()

	sink := bus.BindPool(testPair(t))
	sink.Swap(pool.Swap{Trader: "bob"})
	sink.Swap(pool.Swap{Trader: "carol"})

	assert.Equal(t, uint64(1), bus.Dropped())

	rec := <-sub.C
	assert.Equal(t, uint64(1), rec.Seq)
}

func TestSubscriptionClose(t *testing.T) {
	bus, err := NewBus(16)
	require.NoError(t, err)

	sub := bus.Subscribe("", 1)
	sub.Close()
	sub.Close() // idempotent

	// Channel closed
	_, open := <-sub.C
	assert.False(t, open)

	// Publishing after close reaches nobody and drops nothing
	bus.BindPool(testPair(t)).Swap(pool.Swap{Trader: "bob"})
	assert.Equal(t, uint64(0), bus.Dropped())
}

func TestBusRecentLimit(t *testing.T) {
	bus, err := NewBus(4)
	require.NoError(t, err)

	sink := bus.BindPool(testPair(t))
	for i := 0; i < 10; i++ {
		sink.Swap(pool.Swap{Trader: "bob"})
	}

	// Cache keeps only the last four
	recent := bus.Recent(0)
	require.Len(t, recent, 4)
	assert.Equal(t, uint64(7), recent[0].Seq)
	assert.Equal(t, uint64(10), recent[3].Seq)

	// Explicit limit trims from the front
	recent = bus.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(9), recent[0].Seq)
}
