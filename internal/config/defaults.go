package config

import "github.com/spf13/viper"

// setDefaults sets all default values. Every key gets a default so that
// environment overrides resolve even without a config file.
func setDefaults(v *viper.Viper) {
	// Node defaults
	v.SetDefault("node.name", "ammd")
	v.SetDefault("node.seed", "")
	v.SetDefault("node.private_key", "")

	// Pool store defaults
	v.SetDefault("pool_store.backend", "pebble")
	v.SetDefault("pool_store.path", "./ammd-data/poolstore")
	v.SetDefault("pool_store.cache_size", 2000)
	v.SetDefault("pool_store.cache_ttl", "1h")
	v.SetDefault("pool_store.compressor", "lz4")
	v.SetDefault("pool_store.compression_level", 1)
	v.SetDefault("pool_store.sync_writes", true)

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.path", "./ammd-data/history.db")
	v.SetDefault("history.dsn", "")

	// Event bus defaults
	v.SetDefault("events.buffer", 1024)
	v.SetDefault("events.sweep_interval", "30s")

	// Logging defaults
	v.SetDefault("log.file", "")
	v.SetDefault("log.debug", false)

	// Genesis defaults
	v.SetDefault("genesis_file", "")

	// Port-specific defaults
	setPortDefaults(v)
}

// setPortDefaults sets default values for the standard port configurations.
func setPortDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.ports", []string{"port_rpc", "port_ws", "port_grpc"})
	v.SetDefault("server.ip", "127.0.0.1")

	// HTTP JSON-RPC port
	v.SetDefault("port_rpc.port", 5005)
	v.SetDefault("port_rpc.ip", "127.0.0.1")
	v.SetDefault("port_rpc.protocol", "http")

	// WebSocket subscription port
	v.SetDefault("port_ws.port", 6006)
	v.SetDefault("port_ws.ip", "127.0.0.1")
	v.SetDefault("port_ws.protocol", "ws")
	v.SetDefault("port_ws.send_queue_limit", 500)

	// gRPC query port
	v.SetDefault("port_grpc.port", 50051)
	v.SetDefault("port_grpc.ip", "127.0.0.1")
	v.SetDefault("port_grpc.protocol", "grpc")
}
