// Package config loads and validates the ammd configuration. Settings come
// from defaults, an ammd.toml file and AMMD_ environment variables, in that
// order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/LeJamon/goAMMd/internal/identity"
)

// Config represents the complete ammd configuration.
type Config struct {
	// Node identity
	Node NodeConfig `toml:"node" mapstructure:"node"`

	// Server section listing the enabled ports
	Server ServerConfig `toml:"server" mapstructure:"server"`

	// Port configurations (dynamic based on server.ports)
	Ports map[string]PortConfig `toml:"-" mapstructure:"-"`

	// Storage
	PoolStore PoolStoreConfig `toml:"pool_store" mapstructure:"pool_store"`
	History   HistoryConfig   `toml:"history" mapstructure:"history"`

	// Event bus
	Events EventsConfig `toml:"events" mapstructure:"events"`

	// Logging
	Log LogConfig `toml:"log" mapstructure:"log"`

	// Genesis file path (JSON format)
	// If empty, the node starts with an empty ledger
	GenesisFile string `toml:"genesis_file" mapstructure:"genesis_file"`

	// Internal fields for configuration management
	configPath string `toml:"-" mapstructure:"-"`
}

// NodeConfig identifies this node. The private key takes precedence over
// the seed; when neither is set a fresh identity is generated at startup.
type NodeConfig struct {
	Name       string `toml:"name" mapstructure:"name"`
	Seed       string `toml:"seed" mapstructure:"seed"`
	PrivateKey string `toml:"private_key" mapstructure:"private_key"`
}

// Identity resolves the node identity from the configured key material.
func (n NodeConfig) Identity() (*identity.Identity, error) {
	switch {
	case n.PrivateKey != "":
		return identity.NewIdentityFromPrivateKey(n.PrivateKey)
	case n.Seed != "":
		return identity.NewIdentityFromSeed([]byte(n.Seed))
	default:
		return identity.NewIdentity()
	}
}

// HasKey reports whether the node has explicit key material configured.
func (n NodeConfig) HasKey() bool {
	return n.Seed != "" || n.PrivateKey != ""
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	// Buffer is the recent-record cache capacity
	Buffer int `toml:"buffer" mapstructure:"buffer"`

	// SweepInterval is how often the snapshot cache is swept for
	// expired entries
	SweepInterval time.Duration `toml:"sweep_interval" mapstructure:"sweep_interval"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// File receives log output; empty logs to stderr
	File string `toml:"file" mapstructure:"file"`

	// Debug enables verbose logging
	Debug bool `toml:"debug" mapstructure:"debug"`
}

// GetConfigPath returns the path to the configuration file, if one was loaded.
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// GetPort returns the configuration for a specific port by name.
func (c *Config) GetPort(name string) (PortConfig, bool) {
	port, exists := c.Ports[name]
	return port, exists
}

// GetRPCPort returns the first port configured for HTTP JSON-RPC.
func (c *Config) GetRPCPort() (string, PortConfig, bool) {
	return c.findPort(func(p PortConfig) bool { return p.HasHTTP() })
}

// GetWebSocketPort returns the first port configured for WebSocket.
func (c *Config) GetWebSocketPort() (string, PortConfig, bool) {
	return c.findPort(func(p PortConfig) bool { return p.HasWebSocket() })
}

// GetGRPCPort returns the first port configured for gRPC.
func (c *Config) GetGRPCPort() (string, PortConfig, bool) {
	return c.findPort(func(p PortConfig) bool { return p.HasGRPC() })
}

func (c *Config) findPort(match func(PortConfig) bool) (string, PortConfig, bool) {
	for name, port := range c.Ports {
		if match(port) {
			return name, port, true
		}
	}
	return "", PortConfig{}, false
}

// BindAddresses returns the bind address of every enabled port, keyed by
// port name. Used for startup logging.
func (c *Config) BindAddresses() map[string]string {
	addrs := make(map[string]string, len(c.Ports))
	for name, port := range c.Ports {
		addrs[name] = port.GetBindAddress()
	}
	return addrs
}

// String returns a short description of the configuration for logging.
func (c *Config) String() string {
	return fmt.Sprintf("node=%s ports=%d backend=%s history=%s",
		c.Node.Name, len(c.Ports), c.PoolStore.Backend, c.History.Driver)
}
