package history

import "context"

// sqliteSchema stores amounts as decimal TEXT because 256-bit values
// exceed every sqlite integer type. Timestamps are unix nanoseconds.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		seq INTEGER PRIMARY KEY,
		executed_at INTEGER NOT NULL,
		pair TEXT NOT NULL,
		trader TEXT NOT NULL,
		asset_in TEXT NOT NULL,
		asset_out TEXT NOT NULL,
		amount_in TEXT NOT NULL,
		amount_out TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS liquidity_changes (
		seq INTEGER PRIMARY KEY,
		executed_at INTEGER NOT NULL,
		pair TEXT NOT NULL,
		provider TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('add', 'remove')),
		amount_a TEXT NOT NULL,
		amount_b TEXT NOT NULL,
		shares TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_trades_pair_seq ON trades(pair, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_trader ON trades(trader)`,
	`CREATE INDEX IF NOT EXISTS idx_liquidity_provider_seq ON liquidity_changes(provider, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_liquidity_pair ON liquidity_changes(pair)`,
}

// postgresSchema mirrors the sqlite layout. NUMERIC(78,0) is wide
// enough for any 256-bit value.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		seq BIGINT PRIMARY KEY,
		executed_at BIGINT NOT NULL,
		pair TEXT NOT NULL,
		trader TEXT NOT NULL,
		asset_in TEXT NOT NULL,
		asset_out TEXT NOT NULL,
		amount_in NUMERIC(78,0) NOT NULL,
		amount_out NUMERIC(78,0) NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS liquidity_changes (
		seq BIGINT PRIMARY KEY,
		executed_at BIGINT NOT NULL,
		pair TEXT NOT NULL,
		provider TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('add', 'remove')),
		amount_a NUMERIC(78,0) NOT NULL,
		amount_b NUMERIC(78,0) NOT NULL,
		shares NUMERIC(78,0) NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_trades_pair_seq ON trades(pair, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_trader ON trades(trader)`,
	`CREATE INDEX IF NOT EXISTS idx_liquidity_provider_seq ON liquidity_changes(provider, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_liquidity_pair ON liquidity_changes(pair)`,
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	schema := sqliteSchema
	if s.config.Driver == DriverPostgres {
		schema = postgresSchema
	}

	for _, query := range schema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return NewSchemaError("init_schema", "failed to execute schema statement", err)
		}
	}
	return nil
}
