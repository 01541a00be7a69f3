package grpc

import (
	"errors"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/core/pool"
	"github.com/LeJamon/goAMMd/internal/service"
	"github.com/LeJamon/goAMMd/internal/storage/history"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusFromError translates service errors into gRPC status errors.
// Unrecognized errors become Internal.
func statusFromError(err error) error {
	switch {
	case errors.Is(err, service.ErrPoolNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, service.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())

	case errors.Is(err, pool.ErrNoLiquidity):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, asset.ErrInvalidAsset),
		errors.Is(err, asset.ErrDuplicateAsset),
		errors.Is(err, amount.ErrInvalidAmount),
		errors.Is(err, amount.ErrNegative),
		errors.Is(err, pool.ErrZeroAmount):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, amount.ErrOverflow):
		return status.Error(codes.OutOfRange, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// assetsFromRequest resolves a pool reference carried as either a
// canonical pair key or two asset codes. The returned error is already
// a gRPC status error.
func assetsFromRequest(pairKey, assetA, assetB string) (asset.Asset, asset.Asset, error) {
	if pairKey != "" {
		pair, err := asset.ParsePair(pairKey)
		if err != nil {
			return "", "", statusFromError(err)
		}
		return pair.Base, pair.Quote, nil
	}

	if assetA == "" || assetB == "" {
		return "", "", status.Error(codes.InvalidArgument, "either pair or both asset_a and asset_b must be set")
	}

	return asset.Asset(assetA), asset.Asset(assetB), nil
}

// poolSummary converts a pool info into its wire form.
func poolSummary(info service.PoolInfo) *PoolSummary {
	return &PoolSummary{
		Pair:        info.Pair,
		AssetA:      info.AssetA.String(),
		AssetB:      info.AssetB.String(),
		Account:     info.Account,
		ReserveA:    info.ReserveA.String(),
		ReserveB:    info.ReserveB.String(),
		TotalShares: info.TotalShares.String(),
		Providers:   int32(info.Providers),
		Price:       info.Price.String(),
		LastSeq:     info.LastSeq,
	}
}

// tradeRecord converts a stored trade into its wire form. Times are
// Unix seconds.
func tradeRecord(t history.Trade) *TradeRecord {
	return &TradeRecord{
		Seq:       t.Seq,
		Time:      t.Time.Unix(),
		Pair:      t.Pair,
		Trader:    t.Trader,
		AssetIn:   t.AssetIn.String(),
		AssetOut:  t.AssetOut.String(),
		AmountIn:  t.AmountIn.String(),
		AmountOut: t.AmountOut.String(),
	}
}
