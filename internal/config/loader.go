package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigFile is the config file name looked up in the working directory.
const DefaultConfigFile = "ammd.toml"

// LoadConfig loads configuration from multiple sources in priority order:
// 1. Default values
// 2. Configuration file (ammd.toml), skipped when path is empty
// 3. Environment variables (AMMD_ prefix)
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults first
	setDefaults(v)

	// 2. Load configuration file if one was given
	if path != "" {
		if err := loadConfigFile(v, path); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 3. Set up environment variable support
	v.SetEnvPrefix("AMMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Unmarshal into the struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Process dynamic port configurations
	if err := processPorts(&config, v); err != nil {
		return nil, fmt.Errorf("failed to process ports: %w", err)
	}

	// 6. Store path for reference
	config.configPath = path

	// 7. Validate the complete configuration
	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// LoadDefaultConfig loads ammd.toml from the working directory when present,
// and falls back to built-in defaults otherwise.
func LoadDefaultConfig() (*Config, error) {
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return LoadConfig(DefaultConfigFile)
	}
	return LoadConfig("")
}

// loadConfigFile loads the main configuration file.
func loadConfigFile(v *viper.Viper, configPath string) error {
	v.SetConfigFile(configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return nil
}

// processPorts processes dynamic port configurations.
func processPorts(config *Config, v *viper.Viper) error {
	config.Ports = make(map[string]PortConfig)

	// Get list of ports from server section
	serverPorts := config.Server.Ports
	if len(serverPorts) == 0 {
		// No ports specified in server section - scan for port_* sections
		serverPorts = findPortSections(v)
	}

	for _, portName := range serverPorts {
		portConfig, err := loadPortConfig(v, portName, config.Server)
		if err != nil {
			return fmt.Errorf("failed to load port config %s: %w", portName, err)
		}
		config.Ports[portName] = portConfig
	}

	return nil
}

// findPortSections scans viper for sections that start with "port_".
func findPortSections(v *viper.Viper) []string {
	var ports []string

	portMap := make(map[string]bool)
	for _, key := range v.AllKeys() {
		parts := strings.Split(key, ".")
		if len(parts) >= 2 && strings.HasPrefix(parts[0], "port_") {
			portName := parts[0]
			if !portMap[portName] {
				ports = append(ports, portName)
				portMap[portName] = true
			}
		}
	}

	return ports
}

// loadPortConfig loads configuration for a specific port.
func loadPortConfig(v *viper.Viper, portName string, serverDefaults ServerConfig) (PortConfig, error) {
	var portConfig PortConfig

	portViper := v.Sub(portName)
	if portViper == nil {
		return PortConfig{}, fmt.Errorf("no configuration found for port %s", portName)
	}

	// Apply server defaults first
	applyServerDefaults(portViper, serverDefaults)

	if err := portViper.Unmarshal(&portConfig); err != nil {
		return PortConfig{}, fmt.Errorf("failed to unmarshal port config: %w", err)
	}

	return portConfig, nil
}

// applyServerDefaults applies server-level defaults to a port configuration.
func applyServerDefaults(portViper *viper.Viper, serverDefaults ServerConfig) {
	if serverDefaults.Port != 0 && !portViper.IsSet("port") {
		portViper.SetDefault("port", serverDefaults.Port)
	}
	if serverDefaults.IP != "" && !portViper.IsSet("ip") {
		portViper.SetDefault("ip", serverDefaults.IP)
	}
	if serverDefaults.Protocol != "" && !portViper.IsSet("protocol") {
		portViper.SetDefault("protocol", serverDefaults.Protocol)
	}
	if serverDefaults.Limit != 0 && !portViper.IsSet("limit") {
		portViper.SetDefault("limit", serverDefaults.Limit)
	}
}

// SaveExampleConfig saves an example configuration file.
func SaveExampleConfig(configPath string) error {
	exampleConfig := generateExampleConfig()

	v := viper.New()
	for key, value := range exampleConfig {
		v.Set(key, value)
	}

	v.SetConfigFile(configPath)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write example config: %w", err)
	}

	return nil
}

// generateExampleConfig generates example configuration values.
func generateExampleConfig() map[string]interface{} {
	return map[string]interface{}{
		"node.name": "ammd",

		"server.ports": []string{"port_rpc", "port_ws", "port_grpc"},

		"port_rpc.port":     5005,
		"port_rpc.ip":       "127.0.0.1",
		"port_rpc.protocol": "http",

		"port_ws.port":             6006,
		"port_ws.ip":               "127.0.0.1",
		"port_ws.protocol":         "ws",
		"port_ws.send_queue_limit": 500,

		"port_grpc.port":     50051,
		"port_grpc.ip":       "127.0.0.1",
		"port_grpc.protocol": "grpc",

		"pool_store.backend":    "pebble",
		"pool_store.path":       "/var/lib/ammd/poolstore",
		"pool_store.cache_size": 2000,
		"pool_store.compressor": "lz4",

		"history.enabled": true,
		"history.driver":  "sqlite",
		"history.path":    "/var/lib/ammd/history.db",

		"events.buffer":         1024,
		"events.sweep_interval": "30s",

		"log.file":  "/var/log/ammd/debug.log",
		"log.debug": false,

		"genesis_file": "genesis.json",
	}
}
