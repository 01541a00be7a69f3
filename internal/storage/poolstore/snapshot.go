package poolstore

import (
	"fmt"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/pool"
	"github.com/ugorji/go/codec"
)

// snapshotVersion is bumped when the stored snapshot layout changes.
const snapshotVersion = 1

var cborHandle = newCborHandle()

func newCborHandle() *codec.CborHandle {
	h := new(codec.CborHandle)
	// Canonical encoding keeps equal states byte-identical, which makes the
	// compression savings check deterministic.
	h.Canonical = true
	return h
}

// snapshotV1 is the stored form of a pool state. Amounts are minimal
// big-endian byte strings, the same form Amount.Bytes produces.
type snapshotV1 struct {
	Version     uint32            `codec:"version"`
	AssetA      string            `codec:"asset_a"`
	AssetB      string            `codec:"asset_b"`
	Account     string            `codec:"account"`
	ReserveA    []byte            `codec:"reserve_a"`
	ReserveB    []byte            `codec:"reserve_b"`
	TotalShares []byte            `codec:"total_shares"`
	Shares      map[string][]byte `codec:"shares"`
}

// EncodeSnapshot serializes a pool state for storage.
func EncodeSnapshot(st pool.State) ([]byte, error) {
	snap := snapshotV1{
		Version:     snapshotVersion,
		AssetA:      st.AssetA.String(),
		AssetB:      st.AssetB.String(),
		Account:     st.Account,
		ReserveA:    st.ReserveA.Bytes(),
		ReserveB:    st.ReserveB.Bytes(),
		TotalShares: st.TotalShares.Bytes(),
		Shares:      make(map[string][]byte, len(st.Shares)),
	}
	for provider, held := range st.Shares {
		snap.Shares[provider] = held.Bytes()
	}

	var buf []byte
	if err := codec.NewEncoderBytes(&buf, cborHandle).Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf, nil
}

// DecodeSnapshot deserializes a pool state.
func DecodeSnapshot(data []byte) (pool.State, error) {
	var snap snapshotV1
	if err := codec.NewDecoderBytes(data, cborHandle).Decode(&snap); err != nil {
		return pool.State{}, fmt.Errorf("%w: decode snapshot: %v", ErrDataCorrupt, err)
	}

	if snap.Version != snapshotVersion {
		return pool.State{}, fmt.Errorf("%w: unknown snapshot version %d", ErrDataCorrupt, snap.Version)
	}

	reserveA, err := amount.FromBytes(snap.ReserveA)
	if err != nil {
		return pool.State{}, fmt.Errorf("%w: reserve_a: %v", ErrDataCorrupt, err)
	}
	reserveB, err := amount.FromBytes(snap.ReserveB)
	if err != nil {
		return pool.State{}, fmt.Errorf("%w: reserve_b: %v", ErrDataCorrupt, err)
	}
	totalShares, err := amount.FromBytes(snap.TotalShares)
	if err != nil {
		return pool.State{}, fmt.Errorf("%w: total_shares: %v", ErrDataCorrupt, err)
	}

	st := pool.State{
		AssetA:      asset.Asset(snap.AssetA),
		AssetB:      asset.Asset(snap.AssetB),
		Account:     snap.Account,
		ReserveA:    reserveA,
		ReserveB:    reserveB,
		TotalShares: totalShares,
		Shares:      make(map[string]amount.Amount, len(snap.Shares)),
	}
	for provider, held := range snap.Shares {
		shares, err := amount.FromBytes(held)
		if err != nil {
			return pool.State{}, fmt.Errorf("%w: shares[%s]: %v", ErrDataCorrupt, provider, err)
		}
		st.Shares[provider] = shares
	}

	return st, nil
}

// snapshotPairKey returns the canonical pair key a state is stored under.
func snapshotPairKey(st pool.State) (string, error) {
	pair, err := asset.NewPair(st.AssetA, st.AssetB)
	if err != nil {
		return "", err
	}
	return pair.Key(), nil
}
