package grpc

import (
	"context"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"
	"github.com/LeJamon/goAMMd/internal/storage/history"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Amounts travel as decimal strings so clients without 256-bit integer
// support can still read them exactly.

// GetPoolRequest identifies one pool, either by its canonical pair key
// or by its two asset codes in any order.
type GetPoolRequest struct {
	// Pair is the canonical "BASE/QUOTE" pair key
	Pair string `codec:"pair"`

	// AssetA and AssetB identify the pool when Pair is empty
	AssetA string `codec:"asset_a"`
	AssetB string `codec:"asset_b"`
}

// PoolSummary is the wire form of a pool state summary.
type PoolSummary struct {
	// Pair is the canonical "BASE/QUOTE" pair key
	Pair string `codec:"pair"`

	// AssetA and AssetB are the pool's assets in canonical order
	AssetA string `codec:"asset_a"`
	AssetB string `codec:"asset_b"`

	// Account is the ledger account holding the reserves
	Account string `codec:"account"`

	// ReserveA and ReserveB are the current reserves
	ReserveA string `codec:"reserve_a"`
	ReserveB string `codec:"reserve_b"`

	// TotalShares is the outstanding share supply
	TotalShares string `codec:"total_shares"`

	// Providers is the number of accounts holding shares
	Providers int32 `codec:"providers"`

	// Price is the marginal price of AssetA in AssetB, scaled by 1e18.
	// Zero when the pool is empty.
	Price string `codec:"price"`

	// LastSeq is the event sequence of the last state change
	LastSeq uint64 `codec:"last_seq"`
}

// GetPoolResponse carries the summary of the requested pool.
type GetPoolResponse struct {
	Pool *PoolSummary `codec:"pool"`
}

// GetPool retrieves one pool's state summary.
func (s *Server) GetPool(ctx context.Context, req *GetPoolRequest) (*GetPoolResponse, error) {
	pools := s.poolService()
	if pools == nil {
		return nil, status.Error(codes.Internal, "pool service not available")
	}

	a, b, err := assetsFromRequest(req.Pair, req.AssetA, req.AssetB)
	if err != nil {
		return nil, err
	}

	info, err := pools.PoolInfo(ctx, a, b)
	if err != nil {
		return nil, statusFromError(err)
	}

	return &GetPoolResponse{Pool: poolSummary(info)}, nil
}

// ListPoolsRequest has no parameters.
type ListPoolsRequest struct{}

// ListPoolsResponse carries all registered pools sorted by pair key.
type ListPoolsResponse struct {
	Pools []*PoolSummary `codec:"pools"`
	Count int32          `codec:"count"`
}

// ListPools retrieves summaries of every registered pool.
func (s *Server) ListPools(ctx context.Context, req *ListPoolsRequest) (*ListPoolsResponse, error) {
	pools := s.poolService()
	if pools == nil {
		return nil, status.Error(codes.Internal, "pool service not available")
	}

	infos, err := pools.ListPools(ctx)
	if err != nil {
		return nil, statusFromError(err)
	}

	resp := &ListPoolsResponse{
		Pools: make([]*PoolSummary, 0, len(infos)),
		Count: int32(len(infos)),
	}
	for _, info := range infos {
		resp.Pools = append(resp.Pools, poolSummary(info))
	}

	return resp, nil
}

// GetQuoteRequest asks what a swap would return without executing it.
type GetQuoteRequest struct {
	// AssetIn is the asset being sold
	AssetIn string `codec:"asset_in"`

	// AmountIn is the input amount as a decimal string
	AmountIn string `codec:"amount_in"`

	// AssetOut is the asset being bought
	AssetOut string `codec:"asset_out"`
}

// GetQuoteResponse carries the fee-adjusted output for the quoted swap.
type GetQuoteResponse struct {
	Pair      string `codec:"pair"`
	AssetIn   string `codec:"asset_in"`
	AmountIn  string `codec:"amount_in"`
	AssetOut  string `codec:"asset_out"`
	AmountOut string `codec:"amount_out"`
}

// GetQuote computes the output of a hypothetical swap. Reserves are
// not changed.
func (s *Server) GetQuote(ctx context.Context, req *GetQuoteRequest) (*GetQuoteResponse, error) {
	pools := s.poolService()
	if pools == nil {
		return nil, status.Error(codes.Internal, "pool service not available")
	}

	if req.AssetIn == "" {
		return nil, status.Error(codes.InvalidArgument, "asset_in must be set")
	}
	if req.AssetOut == "" {
		return nil, status.Error(codes.InvalidArgument, "asset_out must be set")
	}

	amountIn, err := amount.Parse(req.AmountIn)
	if err != nil {
		return nil, statusFromError(err)
	}

	res, err := pools.Quote(ctx, asset.Asset(req.AssetIn), amountIn, asset.Asset(req.AssetOut))
	if err != nil {
		return nil, statusFromError(err)
	}

	return &GetQuoteResponse{
		Pair:      res.Pair,
		AssetIn:   res.AssetIn.String(),
		AmountIn:  res.AmountIn.String(),
		AssetOut:  res.AssetOut.String(),
		AmountOut: res.AmountOut.String(),
	}, nil
}

// GetPriceRequest identifies the pool to price, either by pair key or
// by asset codes.
type GetPriceRequest struct {
	// Pair is the canonical "BASE/QUOTE" pair key
	Pair string `codec:"pair"`

	// AssetA and AssetB identify the pool when Pair is empty
	AssetA string `codec:"asset_a"`
	AssetB string `codec:"asset_b"`
}

// GetPriceResponse carries the marginal price of Base in Quote units,
// scaled by 1e18.
type GetPriceResponse struct {
	Pair  string `codec:"pair"`
	Base  string `codec:"base"`
	Quote string `codec:"quote"`
	Price string `codec:"price"`
}

// GetPrice retrieves the marginal price of a pool.
func (s *Server) GetPrice(ctx context.Context, req *GetPriceRequest) (*GetPriceResponse, error) {
	pools := s.poolService()
	if pools == nil {
		return nil, status.Error(codes.Internal, "pool service not available")
	}

	a, b, err := assetsFromRequest(req.Pair, req.AssetA, req.AssetB)
	if err != nil {
		return nil, err
	}

	res, err := pools.Price(ctx, a, b)
	if err != nil {
		return nil, statusFromError(err)
	}

	return &GetPriceResponse{
		Pair:  res.Pair,
		Base:  res.Base.String(),
		Quote: res.Quote.String(),
		Price: res.Price.String(),
	}, nil
}

// GetHistoryRequest selects a window of executed trades for one pair.
type GetHistoryRequest struct {
	// Pair is the canonical "BASE/QUOTE" pair key
	Pair string `codec:"pair"`

	// Trader restricts results to one account when set
	Trader string `codec:"trader"`

	// MinSeq and MaxSeq bound the event sequence window. MaxSeq of
	// zero means no upper bound.
	MinSeq uint64 `codec:"min_seq"`
	MaxSeq uint64 `codec:"max_seq"`

	// Offset skips that many rows, Limit caps the result size
	Offset int32 `codec:"offset"`
	Limit  int32 `codec:"limit"`

	// Forward orders oldest first instead of newest first
	Forward bool `codec:"forward"`
}

// TradeRecord is the wire form of one executed swap.
type TradeRecord struct {
	Seq       uint64 `codec:"seq"`
	Time      int64  `codec:"time"`
	Pair      string `codec:"pair"`
	Trader    string `codec:"trader"`
	AssetIn   string `codec:"asset_in"`
	AssetOut  string `codec:"asset_out"`
	AmountIn  string `codec:"amount_in"`
	AmountOut string `codec:"amount_out"`
}

// GetHistoryResponse carries the trades matching the query window.
type GetHistoryResponse struct {
	Pair   string         `codec:"pair"`
	Trades []*TradeRecord `codec:"trades"`
	Count  int32          `codec:"count"`
}

// GetHistory retrieves executed trades from the history store. Fails
// when the daemon runs without a history backend.
func (s *Server) GetHistory(ctx context.Context, req *GetHistoryRequest) (*GetHistoryResponse, error) {
	pools := s.poolService()
	if pools == nil {
		return nil, status.Error(codes.Internal, "pool service not available")
	}

	store := pools.History()
	if store == nil {
		return nil, status.Error(codes.FailedPrecondition, "history is not enabled")
	}

	if req.Pair == "" {
		return nil, status.Error(codes.InvalidArgument, "pair must be set")
	}

	trades, err := store.TradesByPair(ctx, history.TradeQuery{
		Pair:    req.Pair,
		Trader:  req.Trader,
		MinSeq:  req.MinSeq,
		MaxSeq:  req.MaxSeq,
		Offset:  int(req.Offset),
		Limit:   int(req.Limit),
		Forward: req.Forward,
	})
	if err != nil {
		return nil, statusFromError(err)
	}

	resp := &GetHistoryResponse{
		Pair:   req.Pair,
		Trades: make([]*TradeRecord, 0, len(trades)),
		Count:  int32(len(trades)),
	}
	for _, t := range trades {
		resp.Trades = append(resp.Trades, tradeRecord(t))
	}

	return resp, nil
}
