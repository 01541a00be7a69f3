package config

import (
	"fmt"
)

// ValidateConfig performs validation on the complete configuration.
func ValidateConfig(config *Config) error {
	if err := validateNode(&config.Node); err != nil {
		return fmt.Errorf("node config validation failed: %w", err)
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}

	if err := validatePorts(config.Ports); err != nil {
		return fmt.Errorf("port config validation failed: %w", err)
	}

	if err := config.PoolStore.Validate(); err != nil {
		return fmt.Errorf("pool_store validation failed: %w", err)
	}

	if err := config.History.Validate(); err != nil {
		return fmt.Errorf("history validation failed: %w", err)
	}

	if err := validateEvents(&config.Events); err != nil {
		return fmt.Errorf("events validation failed: %w", err)
	}

	return nil
}

// validateNode validates the node identity configuration.
func validateNode(node *NodeConfig) error {
	if node.Name == "" {
		return fmt.Errorf("node name cannot be empty")
	}

	// Resolving the identity exercises the key material checks
	if node.HasKey() {
		if _, err := node.Identity(); err != nil {
			return fmt.Errorf("invalid key material: %w", err)
		}
	}

	return nil
}

// validateServerConfig validates the server configuration.
func validateServerConfig(server *ServerConfig) error {
	if len(server.Ports) == 0 {
		return fmt.Errorf("at least one port must be specified in server.ports")
	}

	if server.Port != 0 && (server.Port < 1 || server.Port > 65535) {
		return fmt.Errorf("server default port must be between 1 and 65535, got %d", server.Port)
	}

	return nil
}

// validatePorts validates all port configurations.
func validatePorts(ports map[string]PortConfig) error {
	if len(ports) == 0 {
		return fmt.Errorf("no ports configured")
	}

	usedPorts := make(map[string]string) // bind address -> portName mapping

	for portName, portConfig := range ports {
		if err := portConfig.Validate(); err != nil {
			return fmt.Errorf("port %s validation failed: %w", portName, err)
		}

		// Check for port conflicts
		portKey := fmt.Sprintf("%s:%d", portConfig.IP, portConfig.Port)
		if existingPort, exists := usedPorts[portKey]; exists {
			return fmt.Errorf("port conflict: both %s and %s are trying to use %s", existingPort, portName, portKey)
		}
		usedPorts[portKey] = portName
	}

	return nil
}

// validateEvents validates the event bus configuration.
func validateEvents(events *EventsConfig) error {
	if events.Buffer < 0 {
		return fmt.Errorf("buffer must be non-negative, got %d", events.Buffer)
	}
	if events.SweepInterval < 0 {
		return fmt.Errorf("sweep_interval must be non-negative, got %v", events.SweepInterval)
	}
	return nil
}
