package history

import (
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// Supported driver names after normalization.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the connection settings for the history store.
type Config struct {
	// Driver selects the database driver: sqlite or postgres.
	Driver string `json:"driver" yaml:"driver"`

	// DSN, when set, is used verbatim instead of building one.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`

	// Path is the sqlite database file, or :memory: for an
	// in-memory database.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Postgres connection settings.
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty"`

	// Connection pool settings.
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`

	// QueryTimeout bounds individual statements.
	QueryTimeout time.Duration `json:"query_timeout" yaml:"query_timeout"`
}

// DefaultConfig returns a file-backed sqlite configuration.
func DefaultConfig() *Config {
	return SQLiteConfig("./ammd-history.db")
}

// SQLiteConfig returns a configuration for a sqlite database at the
// given path.
func SQLiteConfig(path string) *Config {
	return &Config{
		Driver: DriverSQLite,
		Path:   path,
		// SQLite serializes writers, so more connections only
		// add lock contention.
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 0,
		ConnMaxIdleTime: 0,
		QueryTimeout:    30 * time.Second,
	}
}

var memorySeq atomic.Uint64

// MemoryConfig returns a configuration for an in-memory sqlite
// database, for tests and ephemeral nodes. Each call names a fresh
// database; shared-cache mode keeps it alive across pooled
// connections, and anonymous :memory: DSNs would all land on one
// process-wide database.
func MemoryConfig() *Config {
	c := SQLiteConfig(":memory:")
	c.DSN = fmt.Sprintf("file:ammd-history-%d?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		memorySeq.Add(1))
	return c
}

// PostgresConfig returns a configuration for a postgres database.
func PostgresConfig(host string, port int, database string) *Config {
	return &Config{
		Driver:          DriverPostgres,
		Host:            host,
		Port:            port,
		Database:        database,
		SSLMode:         "prefer",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
		QueryTimeout:    30 * time.Second,
	}
}

// Validate checks the configuration and normalizes the driver name.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	switch strings.ToLower(c.Driver) {
	case "sqlite", "sqlite3":
		// modernc.org/sqlite registers under the name sqlite, so
		// the older sqlite3 spelling folds into it.
		c.Driver = DriverSQLite
		if c.DSN == "" && c.Path == "" {
			return fmt.Errorf("%w: sqlite requires a path", ErrInvalidConfig)
		}
	case "postgres", "postgresql":
		c.Driver = DriverPostgres
		if c.DSN == "" {
			if c.Host == "" {
				return fmt.Errorf("%w: postgres requires a host", ErrInvalidConfig)
			}
			if c.Database == "" {
				return fmt.Errorf("%w: postgres requires a database name", ErrInvalidConfig)
			}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDriver, c.Driver)
	}

	if c.MaxOpenConns < 1 {
		return fmt.Errorf("%w: max open connections must be at least 1", ErrInvalidConfig)
	}
	if c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("%w: max idle connections must be between 0 and max open", ErrInvalidConfig)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("%w: query timeout must be positive", ErrInvalidConfig)
	}

	return nil
}

// BuildConnectionString builds the driver DSN from the config.
func (c *Config) BuildConnectionString() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}

	switch c.Driver {
	case DriverSQLite:
		return c.buildSQLiteConnectionString(), nil
	case DriverPostgres:
		return c.buildPostgresConnectionString(), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDriver, c.Driver)
	}
}

func (c *Config) buildSQLiteConnectionString() string {
	// A plain :memory: DSN gives every pooled connection its own
	// database; shared cache keeps them on one.
	if c.Path == ":memory:" {
		return "file::memory:?cache=shared&_pragma=foreign_keys(1)"
	}

	// The _pragma=name(value) syntax belongs to the modernc driver
	// and must not be URL-escaped.
	params := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=busy_timeout(10000)",
	}
	return "file:" + c.Path + "?" + strings.Join(params, "&")
}

func (c *Config) buildPostgresConnectionString() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	params.Set("connect_timeout", "30")
	params.Set("application_name", "ammd-history")

	u := url.URL{
		Scheme:   "postgres",
		Host:     c.Host,
		Path:     "/" + c.Database,
		RawQuery: params.Encode(),
	}
	if c.Port != 0 && c.Port != 5432 {
		u.Host = fmt.Sprintf("%s:%d", c.Host, c.Port)
	}
	if c.Username != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		} else {
			u.User = url.User(c.Username)
		}
	}
	return u.String()
}

// WithCredentials sets the postgres username and password.
func (c *Config) WithCredentials(username, password string) *Config {
	c.Username = username
	c.Password = password
	return c
}

// WithDSN sets a verbatim connection string.
func (c *Config) WithDSN(dsn string) *Config {
	c.DSN = dsn
	return c
}

// WithMaxConnections sets the connection pool bounds.
func (c *Config) WithMaxConnections(open, idle int) *Config {
	c.MaxOpenConns = open
	c.MaxIdleConns = idle
	return c
}

// WithQueryTimeout sets the per-statement timeout.
func (c *Config) WithQueryTimeout(d time.Duration) *Config {
	c.QueryTimeout = d
	return c
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the configuration with the password redacted.
func (c *Config) String() string {
	password := c.Password
	if password != "" {
		password = "[REDACTED]"
	}
	switch c.Driver {
	case DriverPostgres:
		return fmt.Sprintf("history.Config{Driver: %s, Host: %s, Port: %d, Database: %s, Username: %s, Password: %s}",
			c.Driver, c.Host, c.Port, c.Database, c.Username, password)
	default:
		return fmt.Sprintf("history.Config{Driver: %s, Path: %s}", c.Driver, c.Path)
	}
}
