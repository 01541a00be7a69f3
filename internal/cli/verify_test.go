package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/pool"
	"github.com/LeJamon/goAMMd/internal/events"
	"github.com/LeJamon/goAMMd/internal/storage/poolstore"
)

func amt(s string) amount.Amount { return amount.MustParse(s) }

func depositRecord(seq uint64, pair, provider, amountA, amountB, shares string) events.Record {
	return events.Record{
		Seq:  seq,
		Time: time.Unix(1700000000+int64(seq), 0).UTC(),
		Kind: events.KindLiquidityAdded,
		Pair: pair,
		Liquidity: &events.LiquidityPayload{
			Provider: provider,
			AmountA:  amt(amountA),
			AmountB:  amt(amountB),
			Shares:   amt(shares),
		},
	}
}

func withdrawRecord(seq uint64, pair, provider, amountA, amountB, shares string) events.Record {
	rec := depositRecord(seq, pair, provider, amountA, amountB, shares)
	rec.Kind = events.KindLiquidityRemoved
	return rec
}

func swapEventRecord(seq uint64, pair string, in, out asset.Asset, amountIn, amountOut string) events.Record {
	return events.Record{
		Seq:  seq,
		Time: time.Unix(1700000000+int64(seq), 0).UTC(),
		Kind: events.KindSwap,
		Pair: pair,
		Swap: &events.SwapPayload{
			Trader:    "bob",
			AssetIn:   in,
			AssetOut:  out,
			AmountIn:  amt(amountIn),
			AmountOut: amt(amountOut),
		},
	}
}

func newDerived(pair string) *derivedPool {
	p, err := asset.ParsePair(pair)
	if err != nil {
		panic(err)
	}
	return &derivedPool{
		Pair:   p.Key(),
		AssetA: p.Base,
		AssetB: p.Quote,
		Shares: make(map[string]amount.Amount),
	}
}

func TestDerivedPoolApplySequence(t *testing.T) {
	dp := newDerived("BTC/USD")

	require.NoError(t, dp.apply(depositRecord(1, "BTC/USD", "alice", "100", "200", "141")))
	require.NoError(t, dp.apply(swapEventRecord(2, "BTC/USD", "BTC", "USD", "10", "18")))
	require.NoError(t, dp.apply(withdrawRecord(3, "BTC/USD", "alice", "54", "90", "70")))

	assert.Equal(t, "56", dp.ReserveA.String())
	assert.Equal(t, "92", dp.ReserveB.String())
	assert.Equal(t, "71", dp.TotalShares.String())
	assert.Equal(t, "71", dp.Shares["alice"].String())
	assert.Equal(t, uint64(3), dp.LastSeq)
	assert.Equal(t, 3, dp.Events)
}

func TestDerivedPoolApplySwapQuoteIn(t *testing.T) {
	dp := newDerived("BTC/USD")
	require.NoError(t, dp.apply(depositRecord(1, "BTC/USD", "alice", "100", "200", "141")))

	// USD in, BTC out grows reserve B and shrinks reserve A
	require.NoError(t, dp.apply(swapEventRecord(2, "BTC/USD", "USD", "BTC", "20", "9")))

	assert.Equal(t, "91", dp.ReserveA.String())
	assert.Equal(t, "220", dp.ReserveB.String())
}

func TestDerivedPoolApplyRemovesDrainedProvider(t *testing.T) {
	dp := newDerived("BTC/USD")
	require.NoError(t, dp.apply(depositRecord(1, "BTC/USD", "alice", "100", "200", "141")))
	require.NoError(t, dp.apply(withdrawRecord(2, "BTC/USD", "alice", "100", "200", "141")))

	assert.True(t, dp.ReserveA.IsZero())
	assert.True(t, dp.ReserveB.IsZero())
	assert.True(t, dp.TotalShares.IsZero())
	assert.NotContains(t, dp.Shares, "alice")
}

func TestDerivedPoolApplyMissingPayload(t *testing.T) {
	dp := newDerived("BTC/USD")

	rec := depositRecord(1, "BTC/USD", "alice", "1", "1", "1")
	rec.Liquidity = nil
	err := dp.apply(rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without liquidity payload")

	rec = swapEventRecord(2, "BTC/USD", "BTC", "USD", "1", "1")
	rec.Swap = nil
	err = dp.apply(rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without swap payload")
}

func TestDerivedPoolApplySwapForeignAsset(t *testing.T) {
	dp := newDerived("BTC/USD")
	require.NoError(t, dp.apply(depositRecord(1, "BTC/USD", "alice", "100", "200", "141")))

	err := dp.apply(swapEventRecord(2, "BTC/USD", "DOGE", "USD", "5", "5"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match pair")
}

func TestDerivedPoolApplyUnderflow(t *testing.T) {
	dp := newDerived("BTC/USD")

	err := dp.apply(withdrawRecord(1, "BTC/USD", "alice", "1", "1", "1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, amount.ErrUnderflow)
}

func openVerifyStore(t *testing.T) *poolstore.StoreImpl {
	t.Helper()
	store, err := poolstore.Open(&poolstore.Config{
		Backend:         "memory",
		Path:            "mem",
		CacheSize:       16,
		CacheTTL:        time.Minute,
		Compressor:      "none",
		CreateIfMissing: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestReplayJournal(t *testing.T) {
	ctx := context.Background()
	store := openVerifyStore(t)

	require.NoError(t, store.AppendEvent(ctx, depositRecord(1, "BTC/USD", "alice", "100", "200", "141")))
	require.NoError(t, store.AppendEvent(ctx, swapEventRecord(2, "BTC/USD", "BTC", "USD", "10", "18")))
	require.NoError(t, store.AppendEvent(ctx, depositRecord(3, "ETH/USD", "carol", "50", "75", "61")))

	derived, stats, errs := replayJournal(ctx, store)
	assert.Empty(t, errs)
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 2, stats.Adds)
	assert.Equal(t, 1, stats.Swaps)
	assert.Equal(t, uint64(1), stats.FirstSeq)
	assert.Equal(t, uint64(3), stats.LastSeq)
	assert.Equal(t, 0, stats.Gaps)

	require.Contains(t, derived, "BTC/USD")
	assert.Equal(t, "110", derived["BTC/USD"].ReserveA.String())
	assert.Equal(t, "182", derived["BTC/USD"].ReserveB.String())

	require.Contains(t, derived, "ETH/USD")
	assert.Equal(t, "61", derived["ETH/USD"].TotalShares.String())
	assert.Equal(t, "61", derived["ETH/USD"].Shares["carol"].String())
}

func TestReplayJournalDetectsGaps(t *testing.T) {
	ctx := context.Background()
	store := openVerifyStore(t)

	require.NoError(t, store.AppendEvent(ctx, depositRecord(1, "BTC/USD", "alice", "100", "200", "141")))
	require.NoError(t, store.AppendEvent(ctx, swapEventRecord(3, "BTC/USD", "BTC", "USD", "10", "18")))

	_, stats, errs := replayJournal(ctx, store)
	assert.Equal(t, 1, stats.Gaps)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "gap between sequences 1 and 3")
}

func TestReplayJournalDetectsLateStart(t *testing.T) {
	ctx := context.Background()
	store := openVerifyStore(t)

	require.NoError(t, store.AppendEvent(ctx, depositRecord(2, "BTC/USD", "alice", "100", "200", "141")))

	_, stats, errs := replayJournal(ctx, store)
	assert.Equal(t, 1, stats.Gaps)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "starts at sequence 2")
}

func TestReplayJournalIsolatesCorruptPair(t *testing.T) {
	ctx := context.Background()
	store := openVerifyStore(t)

	// BTC/USD withdraws more than it ever held; ETH/USD stays clean
	require.NoError(t, store.AppendEvent(ctx, withdrawRecord(1, "BTC/USD", "alice", "10", "10", "10")))
	require.NoError(t, store.AppendEvent(ctx, depositRecord(2, "ETH/USD", "carol", "50", "75", "61")))

	derived, _, errs := replayJournal(ctx, store)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "BTC/USD")

	require.Contains(t, derived, "BTC/USD")
	assert.NotEmpty(t, derived["BTC/USD"].Err)
	require.Contains(t, derived, "ETH/USD")
	assert.Empty(t, derived["ETH/USD"].Err)
	assert.Equal(t, "50", derived["ETH/USD"].ReserveA.String())
}

func storedFixture(pair string, reserveA, reserveB, total string, seq uint64, shares map[string]string) storedPool {
	p, err := asset.ParsePair(pair)
	if err != nil {
		panic(err)
	}
	held := make(map[string]amount.Amount, len(shares))
	for provider, s := range shares {
		held[provider] = amt(s)
	}
	return storedPool{
		State: pool.State{
			AssetA:      p.Base,
			AssetB:      p.Quote,
			Account:     "pool:" + p.Key(),
			ReserveA:    amt(reserveA),
			ReserveB:    amt(reserveB),
			TotalShares: amt(total),
			Shares:      held,
		},
		Seq: seq,
	}
}

func TestCheckPoolsConsistent(t *testing.T) {
	stored := map[string]storedPool{
		"BTC/USD": storedFixture("BTC/USD", "110", "182", "141", 2, map[string]string{"alice": "141"}),
	}
	dp := newDerived("BTC/USD")
	require.NoError(t, dp.apply(depositRecord(1, "BTC/USD", "alice", "100", "200", "141")))
	require.NoError(t, dp.apply(swapEventRecord(2, "BTC/USD", "BTC", "USD", "10", "18")))

	checks := checkPools(stored, map[string]*derivedPool{"BTC/USD": dp})
	require.Len(t, checks, 1)
	assert.Equal(t, checkOK, checks[0].Status)
	assert.Empty(t, checks[0].Diffs)
}

func TestCheckPoolsMismatch(t *testing.T) {
	stored := map[string]storedPool{
		"BTC/USD": storedFixture("BTC/USD", "999", "182", "141", 2, map[string]string{"alice": "141"}),
	}
	dp := newDerived("BTC/USD")
	require.NoError(t, dp.apply(depositRecord(1, "BTC/USD", "alice", "100", "200", "141")))
	require.NoError(t, dp.apply(swapEventRecord(2, "BTC/USD", "BTC", "USD", "10", "18")))

	checks := checkPools(stored, map[string]*derivedPool{"BTC/USD": dp})
	require.Len(t, checks, 1)
	assert.Equal(t, checkMismatch, checks[0].Status)
	require.Len(t, checks[0].Diffs, 1)
	assert.Equal(t, "reserve_a", checks[0].Diffs[0].Field)
	assert.Equal(t, "999", checks[0].Diffs[0].Snapshot)
	assert.Equal(t, "110", checks[0].Diffs[0].Replayed)
}

func TestCheckPoolsShareDiff(t *testing.T) {
	stored := map[string]storedPool{
		"BTC/USD": storedFixture("BTC/USD", "100", "200", "141", 1, map[string]string{"alice": "100", "mallory": "41"}),
	}
	dp := newDerived("BTC/USD")
	require.NoError(t, dp.apply(depositRecord(1, "BTC/USD", "alice", "100", "200", "141")))

	checks := checkPools(stored, map[string]*derivedPool{"BTC/USD": dp})
	require.Len(t, checks, 1)
	assert.Equal(t, checkMismatch, checks[0].Status)

	fields := make([]string, 0, len(checks[0].Diffs))
	for _, diff := range checks[0].Diffs {
		fields = append(fields, diff.Field)
	}
	assert.Equal(t, []string{"shares[alice]", "shares[mallory]"}, fields)
}

func TestCheckPoolsMissingSnapshot(t *testing.T) {
	dp := newDerived("BTC/USD")
	require.NoError(t, dp.apply(depositRecord(1, "BTC/USD", "alice", "100", "200", "141")))

	checks := checkPools(nil, map[string]*derivedPool{"BTC/USD": dp})
	require.Len(t, checks, 1)
	assert.Equal(t, checkMissingSnapshot, checks[0].Status)
}

func TestCheckPoolsMissingJournal(t *testing.T) {
	stored := map[string]storedPool{
		"BTC/USD": storedFixture("BTC/USD", "100", "200", "141", 1, map[string]string{"alice": "141"}),
	}

	checks := checkPools(stored, nil)
	require.Len(t, checks, 1)
	assert.Equal(t, checkMissingJournal, checks[0].Status)
}

func TestCheckPoolsEmptyPoolWithoutJournal(t *testing.T) {
	// A pool created but never funded has an empty snapshot at sequence
	// zero and no journal history
	stored := map[string]storedPool{
		"BTC/USD": storedFixture("BTC/USD", "0", "0", "0", 0, nil),
	}

	checks := checkPools(stored, nil)
	require.Len(t, checks, 1)
	assert.Equal(t, checkOK, checks[0].Status)
}

func TestCheckPoolsCorruptPair(t *testing.T) {
	stored := map[string]storedPool{
		"BTC/USD": storedFixture("BTC/USD", "100", "200", "141", 1, map[string]string{"alice": "141"}),
	}
	dp := newDerived("BTC/USD")
	dp.Err = "sequence 1: total shares: amount underflow"

	checks := checkPools(stored, map[string]*derivedPool{"BTC/USD": dp})
	require.Len(t, checks, 1)
	assert.Equal(t, checkCorrupt, checks[0].Status)
	assert.Contains(t, checks[0].Error, "underflow")
}

func TestCheckPoolsSortsByPair(t *testing.T) {
	stored := map[string]storedPool{
		"ETH/USD": storedFixture("ETH/USD", "0", "0", "0", 0, nil),
		"BTC/USD": storedFixture("BTC/USD", "0", "0", "0", 0, nil),
	}

	checks := checkPools(stored, nil)
	require.Len(t, checks, 2)
	assert.Equal(t, "BTC/USD", checks[0].Pair)
	assert.Equal(t, "ETH/USD", checks[1].Pair)
}

func TestVerifyEndToEndConsistentStore(t *testing.T) {
	ctx := context.Background()
	store := openVerifyStore(t)

	require.NoError(t, store.AppendEvent(ctx, depositRecord(1, "BTC/USD", "alice", "100", "200", "141")))
	require.NoError(t, store.AppendEvent(ctx, swapEventRecord(2, "BTC/USD", "BTC", "USD", "10", "18")))
	snap := storedFixture("BTC/USD", "110", "182", "141", 2, map[string]string{"alice": "141"})
	require.NoError(t, store.StoreSnapshot(ctx, snap.State, snap.Seq))

	stored, err := loadStoredPools(ctx, store)
	require.NoError(t, err)
	derived, stats, errs := replayJournal(ctx, store)
	require.Empty(t, errs)
	assert.Equal(t, 2, stats.Records)

	checks := checkPools(stored, derived)
	require.Len(t, checks, 1)
	assert.Equal(t, checkOK, checks[0].Status)
}
