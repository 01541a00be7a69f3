package history

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/LeJamon/goAMMd/internal/core/amount"
	"github.com/LeJamon/goAMMd/internal/core/asset"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver, cgo-free
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
)

// SQLStore implements Store over database/sql for sqlite and postgres.
type SQLStore struct {
	config *Config
	db     *sql.DB
}

// NewStore validates the configuration and returns an unopened store.
func NewStore(config *Config) (*SQLStore, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigurationError("new_store", "invalid configuration", err)
	}
	return &SQLStore{config: config}, nil
}

// Open validates the configuration, connects and migrates the schema.
func Open(ctx context.Context, config *Config) (*SQLStore, error) {
	store, err := NewStore(config)
	if err != nil {
		return nil, err
	}
	if err := store.Open(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Open connects to the database, configures the connection pool and
// migrates the schema.
func (s *SQLStore) Open(ctx context.Context) error {
	connStr, err := s.config.BuildConnectionString()
	if err != nil {
		return NewConfigurationError("open", "failed to build connection string", err)
	}

	db, err := sql.Open(s.config.Driver, connStr)
	if err != nil {
		return NewConnectionError("open", "failed to open database", err)
	}

	db.SetMaxOpenConns(s.config.MaxOpenConns)
	db.SetMaxIdleConns(s.config.MaxIdleConns)
	db.SetConnMaxLifetime(s.config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(s.config.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return NewConnectionError("open", "failed to ping database", err)
	}

	s.db = db

	if err := s.initSchema(ctx); err != nil {
		s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Close releases the database connection.
func (s *SQLStore) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return NewConnectionError("close", "failed to close database", err)
	}
	return nil
}

// Ping verifies the connection is alive.
func (s *SQLStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return NewConnectionError("ping", "database ping failed", err)
	}
	return nil
}

// RecordSwap inserts a trade row. A duplicate sequence is ignored so
// that journal replay can re-record safely.
func (s *SQLStore) RecordSwap(ctx context.Context, t Trade) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := s.rebind(`INSERT INTO trades (seq, executed_at, pair, trader, asset_in, asset_out, amount_in, amount_out)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (seq) DO NOTHING`)

	_, err := s.db.ExecContext(ctx, query,
		int64(t.Seq), t.Time.UnixNano(), t.Pair, t.Trader,
		t.AssetIn.String(), t.AssetOut.String(),
		t.AmountIn.String(), t.AmountOut.String())
	if err != nil {
		return NewQueryError("record_swap", "failed to insert trade", err)
	}
	return nil
}

// RecordLiquidityChange inserts a liquidity row. A duplicate sequence
// is ignored.
func (s *SQLStore) RecordLiquidityChange(ctx context.Context, c LiquidityChange) error {
	if s.db == nil {
		return ErrStoreClosed
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	query := s.rebind(`INSERT INTO liquidity_changes (seq, executed_at, pair, provider, kind, amount_a, amount_b, shares)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (seq) DO NOTHING`)

	_, err := s.db.ExecContext(ctx, query,
		int64(c.Seq), c.Time.UnixNano(), c.Pair, c.Provider, string(c.Kind),
		c.AmountA.String(), c.AmountB.String(), c.Shares.String())
	if err != nil {
		return NewQueryError("record_liquidity_change", "failed to insert liquidity change", err)
	}
	return nil
}

// TradesByPair returns trades matching the query window, newest first
// unless Forward is set.
func (s *SQLStore) TradesByPair(ctx context.Context, q TradeQuery) ([]Trade, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	if q.Pair == "" {
		return nil, NewQueryError("trades_by_pair", "pair is required", nil)
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var sb strings.Builder
	sb.WriteString(`SELECT seq, executed_at, pair, trader, asset_in, asset_out, amount_in, amount_out
		FROM trades WHERE pair = ?`)
	args := []interface{}{q.Pair}

	if q.Trader != "" {
		sb.WriteString(" AND trader = ?")
		args = append(args, q.Trader)
	}
	if q.MinSeq > 0 {
		sb.WriteString(" AND seq >= ?")
		args = append(args, int64(q.MinSeq))
	}
	if q.MaxSeq > 0 {
		sb.WriteString(" AND seq <= ?")
		args = append(args, int64(q.MaxSeq))
	}
	sb.WriteString(orderClause(q.Forward))
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, normalizeLimit(q.Limit), maxInt(q.Offset, 0))

	rows, err := s.db.QueryContext(ctx, s.rebind(sb.String()), args...)
	if err != nil {
		return nil, NewQueryError("trades_by_pair", "failed to query trades", err)
	}
	defer rows.Close()

	var results []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, NewQueryError("trades_by_pair", "error iterating rows", err)
	}
	return results, nil
}

// LiquidityByProvider returns liquidity changes matching the query
// window, newest first unless Forward is set.
func (s *SQLStore) LiquidityByProvider(ctx context.Context, q LiquidityQuery) ([]LiquidityChange, error) {
	if s.db == nil {
		return nil, ErrStoreClosed
	}
	if q.Provider == "" {
		return nil, NewQueryError("liquidity_by_provider", "provider is required", nil)
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var sb strings.Builder
	sb.WriteString(`SELECT seq, executed_at, pair, provider, kind, amount_a, amount_b, shares
		FROM liquidity_changes WHERE provider = ?`)
	args := []interface{}{q.Provider}

	if q.Pair != "" {
		sb.WriteString(" AND pair = ?")
		args = append(args, q.Pair)
	}
	if q.MinSeq > 0 {
		sb.WriteString(" AND seq >= ?")
		args = append(args, int64(q.MinSeq))
	}
	if q.MaxSeq > 0 {
		sb.WriteString(" AND seq <= ?")
		args = append(args, int64(q.MaxSeq))
	}
	sb.WriteString(orderClause(q.Forward))
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, normalizeLimit(q.Limit), maxInt(q.Offset, 0))

	rows, err := s.db.QueryContext(ctx, s.rebind(sb.String()), args...)
	if err != nil {
		return nil, NewQueryError("liquidity_by_provider", "failed to query liquidity changes", err)
	}
	defer rows.Close()

	var results []LiquidityChange
	for rows.Next() {
		c, err := scanLiquidityChange(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, NewQueryError("liquidity_by_provider", "error iterating rows", err)
	}
	return results, nil
}

// Counts reports row totals per table.
func (s *SQLStore) Counts(ctx context.Context) (Counts, error) {
	if s.db == nil {
		return Counts{}, ErrStoreClosed
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var counts Counts
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trades").Scan(&counts.Trades); err != nil {
		return Counts{}, NewQueryError("counts", "failed to count trades", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM liquidity_changes").Scan(&counts.LiquidityChanges); err != nil {
		return Counts{}, NewQueryError("counts", "failed to count liquidity changes", err)
	}
	return counts, nil
}

func (s *SQLStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.QueryTimeout)
}

// rebind rewrites ? placeholders into the $N form postgres expects.
// SQLite accepts ? natively.
func (s *SQLStore) rebind(query string) string {
	if s.config.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func scanTrade(rows *sql.Rows) (Trade, error) {
	var (
		seq                 int64
		nanos               int64
		pair, trader        string
		assetIn, assetOut   string
		amountIn, amountOut string
	)
	if err := rows.Scan(&seq, &nanos, &pair, &trader, &assetIn, &assetOut, &amountIn, &amountOut); err != nil {
		return Trade{}, NewQueryError("scan_trade", "failed to scan row", err)
	}

	in, err := amount.Parse(amountIn)
	if err != nil {
		return Trade{}, NewQueryError("scan_trade", "invalid stored input amount", err)
	}
	out, err := amount.Parse(amountOut)
	if err != nil {
		return Trade{}, NewQueryError("scan_trade", "invalid stored output amount", err)
	}

	return Trade{
		Seq:       uint64(seq),
		Time:      time.Unix(0, nanos).UTC(),
		Pair:      pair,
		Trader:    trader,
		AssetIn:   asset.Asset(assetIn),
		AssetOut:  asset.Asset(assetOut),
		AmountIn:  in,
		AmountOut: out,
	}, nil
}

func scanLiquidityChange(rows *sql.Rows) (LiquidityChange, error) {
	var (
		seq            int64
		nanos          int64
		pair, provider string
		kind           string
		a, b, shares   string
	)
	if err := rows.Scan(&seq, &nanos, &pair, &provider, &kind, &a, &b, &shares); err != nil {
		return LiquidityChange{}, NewQueryError("scan_liquidity_change", "failed to scan row", err)
	}

	amountA, err := amount.Parse(a)
	if err != nil {
		return LiquidityChange{}, NewQueryError("scan_liquidity_change", "invalid stored amount", err)
	}
	amountB, err := amount.Parse(b)
	if err != nil {
		return LiquidityChange{}, NewQueryError("scan_liquidity_change", "invalid stored amount", err)
	}
	sh, err := amount.Parse(shares)
	if err != nil {
		return LiquidityChange{}, NewQueryError("scan_liquidity_change", "invalid stored share amount", err)
	}

	return LiquidityChange{
		Seq:      uint64(seq),
		Time:     time.Unix(0, nanos).UTC(),
		Pair:     pair,
		Provider: provider,
		Kind:     ChangeKind(kind),
		AmountA:  amountA,
		AmountB:  amountB,
		Shares:   sh,
	}, nil
}

func orderClause(forward bool) string {
	if forward {
		return " ORDER BY seq ASC"
	}
	return " ORDER BY seq DESC"
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultQueryLimit
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}

func maxInt(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}
