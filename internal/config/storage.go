package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/LeJamon/goAMMd/internal/storage/history"
	"github.com/LeJamon/goAMMd/internal/storage/poolstore"
)

// PoolStoreConfig represents the [pool_store] section. It configures the
// snapshot and journal store that pool state is persisted to.
type PoolStoreConfig struct {
	Backend          string        `toml:"backend" mapstructure:"backend"`
	Path             string        `toml:"path" mapstructure:"path"`
	CacheSize        int           `toml:"cache_size" mapstructure:"cache_size"`
	CacheTTL         time.Duration `toml:"cache_ttl" mapstructure:"cache_ttl"`
	Compressor       string        `toml:"compressor" mapstructure:"compressor"`
	CompressionLevel int           `toml:"compression_level" mapstructure:"compression_level"`
	SyncWrites       bool          `toml:"sync_writes" mapstructure:"sync_writes"`
}

// Validate checks the pool store section.
func (p *PoolStoreConfig) Validate() error {
	return p.ToStoreConfig().Validate()
}

// ToStoreConfig converts the section into a poolstore configuration.
func (p *PoolStoreConfig) ToStoreConfig() *poolstore.Config {
	cfg := poolstore.DefaultConfig()
	cfg.ApplyOptions(
		poolstore.WithBackend(p.Backend),
		poolstore.WithPath(p.Path),
		poolstore.WithCacheSize(p.CacheSize),
		poolstore.WithCacheTTL(p.CacheTTL),
		poolstore.WithCompression(p.Compressor, p.CompressionLevel),
		poolstore.WithSyncWrites(p.SyncWrites),
	)
	return cfg
}

// HistoryConfig represents the [history] section. It configures the SQL
// store that records executed trades and liquidity changes.
type HistoryConfig struct {
	// Enabled controls whether history is recorded at all
	Enabled bool `toml:"enabled" mapstructure:"enabled"`

	// Driver selects the SQL driver: sqlite (default) or postgres
	Driver string `toml:"driver" mapstructure:"driver"`

	// Path is the database file path for the sqlite driver
	Path string `toml:"path" mapstructure:"path"`

	// DSN overrides the connection string entirely; required for postgres
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// Validate checks the history section.
func (h *HistoryConfig) Validate() error {
	if !h.Enabled {
		return nil
	}

	switch strings.ToLower(h.Driver) {
	case "sqlite", "sqlite3":
		if h.Path == "" && h.DSN == "" {
			return fmt.Errorf("sqlite history requires a path")
		}
	case "postgres", "postgresql":
		if h.DSN == "" {
			return fmt.Errorf("postgres history requires a dsn")
		}
	default:
		return fmt.Errorf("unsupported history driver: %s", h.Driver)
	}

	return nil
}

// ToStoreConfig converts the section into a history store configuration.
// Returns nil when history is disabled.
func (h *HistoryConfig) ToStoreConfig() *history.Config {
	if !h.Enabled {
		return nil
	}

	var cfg *history.Config
	switch strings.ToLower(h.Driver) {
	case "postgres", "postgresql":
		cfg = history.PostgresConfig("", 0, "")
	default:
		cfg = history.SQLiteConfig(h.Path)
	}

	if h.DSN != "" {
		cfg = cfg.WithDSN(h.DSN)
	}
	return cfg
}
