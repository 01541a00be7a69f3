package poolstore_test

import (
	"testing"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/pool"
	"github.com/LeJamon/goAMMd/internal/storage/poolstore"
)

func testState() pool.State {
	return pool.State{
		AssetA:   "BTC",
		AssetB:   "USD",
		Account:  "pool-btc-usd",
		ReserveA: amount.MustParse("100000000000000000000"),
		ReserveB: amount.MustParse("200000000000000000000"),
		TotalShares: amount.MustParse(
			"141421356237309504880"),
		Shares: map[string]amount.Amount{
			"alice": amount.MustParse("100000000000000000000"),
			"bob":   amount.MustParse("41421356237309504880"),
		},
	}
}

func statesEqual(t *testing.T, got, want pool.State) {
	t.Helper()

	if got.AssetA != want.AssetA || got.AssetB != want.AssetB {
		t.Errorf("assets mismatch: got %s/%s, want %s/%s", got.AssetA, got.AssetB, want.AssetA, want.AssetB)
	}
	if got.Account != want.Account {
		t.Errorf("account mismatch: got %q, want %q", got.Account, want.Account)
	}
	if !got.ReserveA.Equal(want.ReserveA) || !got.ReserveB.Equal(want.ReserveB) {
		t.Errorf("reserves mismatch: got %s/%s, want %s/%s", got.ReserveA, got.ReserveB, want.ReserveA, want.ReserveB)
	}
	if !got.TotalShares.Equal(want.TotalShares) {
		t.Errorf("total shares mismatch: got %s, want %s", got.TotalShares, want.TotalShares)
	}
	if len(got.Shares) != len(want.Shares) {
		t.Fatalf("share count mismatch: got %d, want %d", len(got.Shares), len(want.Shares))
	}
	for provider, held := range want.Shares {
		if !got.Shares[provider].Equal(held) {
			t.Errorf("shares[%s] mismatch: got %s, want %s", provider, got.Shares[provider], held)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	want := testState()

	data, err := poolstore.EncodeSnapshot(want)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := poolstore.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	statesEqual(t, got, want)
}

func TestSnapshotRoundTripEmptyPool(t *testing.T) {
	want := pool.State{
		AssetA:      "ETH",
		AssetB:      "XRP",
		Account:     "pool-eth-xrp",
		ReserveA:    amount.Zero(),
		ReserveB:    amount.Zero(),
		TotalShares: amount.Zero(),
		Shares:      map[string]amount.Amount{},
	}

	data, err := poolstore.EncodeSnapshot(want)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := poolstore.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	statesEqual(t, got, want)
	if !got.ReserveA.IsZero() {
		t.Error("zero reserve did not survive the round trip")
	}
}

func TestSnapshotMaxAmounts(t *testing.T) {
	want := testState()
	want.ReserveA = amount.Max()
	want.Shares["carol"] = amount.Max()

	data, err := poolstore.EncodeSnapshot(want)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := poolstore.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if !got.ReserveA.Equal(amount.Max()) {
		t.Error("max reserve did not survive the round trip")
	}
	if !got.Shares["carol"].Equal(amount.Max()) {
		t.Error("max share balance did not survive the round trip")
	}
}

func TestSnapshotDeterministic(t *testing.T) {
	st := testState()

	first, err := poolstore.EncodeSnapshot(st)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	second, err := poolstore.EncodeSnapshot(st)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if string(first) != string(second) {
		t.Error("encoding the same state twice produced different bytes")
	}
}

func TestDecodeSnapshotRejectsGarbage(t *testing.T) {
	if _, err := poolstore.DecodeSnapshot([]byte{0xde, 0xad, 0xbe, 0xef}); !poolstore.IsDataCorrupt(err) {
		t.Errorf("expected data corruption error, got %v", err)
	}
}

func TestDecodedSnapshotRestoresPool(t *testing.T) {
	src := testState()
	pair, err := asset.NewPair(src.AssetA, src.AssetB)
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	if pair.Key() != "BTC/USD" {
		t.Fatalf("unexpected pair key %q", pair.Key())
	}

	data, err := poolstore.EncodeSnapshot(src)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	st, err := poolstore.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	// A decoded snapshot must be accepted by the pool's own restore path.
	lgr := newFundedLedger(t, st)
	restored, err := pool.FromState(st, lgr, pool.NopSink{})
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	reserveA, reserveB := restored.Reserves()
	if !reserveA.Equal(src.ReserveA) || !reserveB.Equal(src.ReserveB) {
		t.Error("restored reserves mismatch")
	}
	if !restored.TotalShares().Equal(src.TotalShares) {
		t.Error("restored total shares mismatch")
	}
}
