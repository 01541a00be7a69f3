package poolstore

import (
	"fmt"
	"time"

	"github.com/LeJamon/goAMMd/internal/storage/poolstore/compression"
)

// Config holds the tunables for opening a pool store.
type Config struct {
	// Backend names the storage backend, one of AvailableBackends.
	Backend string `json:"backend" yaml:"backend"`

	// Path is the directory the backend keeps its files under.
	Path string `json:"path" yaml:"path"`

	// CacheSize caps the snapshot cache entry count; zero disables the
	// cache. CacheTTL bounds how long a cached snapshot is served.
	CacheSize int           `json:"cache_size" yaml:"cache_size"`
	CacheTTL  time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// Compressor names the payload compressor, one of
	// compression.Available. CompressionLevel selects its effort; lz4
	// switches to the high compression encoder above level 1.
	Compressor       string `json:"compressor" yaml:"compressor"`
	CompressionLevel int    `json:"compression_level" yaml:"compression_level"`

	// SyncWrites forces every commit to reach stable storage before
	// returning. Slower, but snapshots survive a crash.
	SyncWrites bool `json:"sync_writes" yaml:"sync_writes"`

	// CreateIfMissing creates the database on first open instead of
	// failing when it does not exist.
	CreateIfMissing bool `json:"create_if_missing" yaml:"create_if_missing"`
}

// DefaultConfig returns the production defaults: a durable pebble store with
// lz4 payload compression and an hour of snapshot caching.
func DefaultConfig() *Config {
	return &Config{
		Backend:          "pebble",
		Path:             "./poolstore",
		CacheSize:        2000,
		CacheTTL:         time.Hour,
		Compressor:       "lz4",
		CompressionLevel: 1,
		SyncWrites:       true,
		CreateIfMissing:  true,
	}
}

// Validate reports the first problem with the configuration. All returned
// errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Backend == "":
		return fmt.Errorf("%w: backend must be specified", ErrInvalidConfig)
	case !IsBackendAvailable(c.Backend):
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	case c.Path == "":
		return fmt.Errorf("%w: path must be specified", ErrInvalidConfig)
	case c.CacheSize < 0:
		return fmt.Errorf("%w: cache_size must not be negative", ErrInvalidConfig)
	case c.CacheTTL < 0:
		return fmt.Errorf("%w: cache_ttl must not be negative", ErrInvalidConfig)
	case c.CompressionLevel < 0 || c.CompressionLevel > 9:
		return fmt.Errorf("%w: compression_level must be between 0 and 9", ErrInvalidConfig)
	case !compression.IsAvailable(c.Compressor):
		return fmt.Errorf("%w: unknown compressor %q", ErrInvalidConfig, c.Compressor)
	}
	return nil
}

// Option mutates a Config. Options compose with DefaultConfig so callers
// only name what they change.
type Option func(*Config)

// WithBackend selects the storage backend.
func WithBackend(backend string) Option {
	return func(c *Config) { c.Backend = backend }
}

// WithPath sets the storage directory.
func WithPath(path string) Option {
	return func(c *Config) { c.Path = path }
}

// WithCacheSize caps the snapshot cache entry count.
func WithCacheSize(size int) Option {
	return func(c *Config) { c.CacheSize = size }
}

// WithCacheTTL bounds how long a cached snapshot is served.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Config) { c.CacheTTL = ttl }
}

// WithCompression selects the payload compressor and its level.
func WithCompression(compressor string, level int) Option {
	return func(c *Config) {
		c.Compressor = compressor
		c.CompressionLevel = level
	}
}

// WithSyncWrites controls whether commits wait for stable storage.
func WithSyncWrites(sync bool) Option {
	return func(c *Config) { c.SyncWrites = sync }
}

// WithCreateIfMissing controls whether opening creates a missing database.
func WithCreateIfMissing(create bool) Option {
	return func(c *Config) { c.CreateIfMissing = create }
}

// ApplyOptions applies options in order.
func (c *Config) ApplyOptions(options ...Option) {
	for _, option := range options {
		option(c)
	}
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	dup := *c
	return &dup
}

// String formats the configuration for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("backend=%s path=%s cache=%d/%v compression=%s:%d sync=%t create=%t",
		c.Backend, c.Path,
		c.CacheSize, c.CacheTTL,
		c.Compressor, c.CompressionLevel,
		c.SyncWrites, c.CreateIfMissing)
}
