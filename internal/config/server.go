package config

import (
	"fmt"
	"strings"
)

// ServerConfig represents the [server] section
// This defines the ports that the server will listen on and default values
type ServerConfig struct {
	Ports    []string `toml:"ports" mapstructure:"ports"`       // List of port names to enable
	Port     int      `toml:"port" mapstructure:"port"`         // Default port number
	IP       string   `toml:"ip" mapstructure:"ip"`             // Default IP address
	Protocol string   `toml:"protocol" mapstructure:"protocol"` // Default protocol
	Limit    int      `toml:"limit" mapstructure:"limit"`       // Default connection limit
}

// PortConfig represents individual port configurations like [port_rpc]
// Each port section in the config becomes one of these structs
type PortConfig struct {
	Port     int    `toml:"port" mapstructure:"port"`
	IP       string `toml:"ip" mapstructure:"ip"`
	Protocol string `toml:"protocol" mapstructure:"protocol"`
	Limit    int    `toml:"limit" mapstructure:"limit"`

	// WebSocket specific settings
	SendQueueLimit int `toml:"send_queue_limit" mapstructure:"send_queue_limit"`
}

// HasHTTP returns true if the port serves HTTP JSON-RPC.
func (p *PortConfig) HasHTTP() bool {
	return hasProtocol(p.Protocol, "http")
}

// HasWebSocket returns true if the port serves WebSocket subscriptions.
func (p *PortConfig) HasWebSocket() bool {
	return hasProtocol(p.Protocol, "ws")
}

// HasGRPC returns true if the port serves gRPC.
func (p *PortConfig) HasGRPC() bool {
	return hasProtocol(p.Protocol, "grpc")
}

// GetBindAddress returns the full bind address (IP:Port).
func (p *PortConfig) GetBindAddress() string {
	if p.IP == "" {
		return ":0" // Invalid, but will be caught by validation
	}
	if p.Port == 0 {
		return p.IP + ":0"
	}
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

// Validate performs validation on the port configuration.
func (p *PortConfig) Validate() error {
	if p.Port == 0 {
		return fmt.Errorf("port number is required")
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("port number must be between 1 and 65535, got %d", p.Port)
	}
	if p.IP == "" {
		return fmt.Errorf("IP address is required")
	}
	if p.Protocol == "" {
		return fmt.Errorf("protocol is required")
	}
	if err := p.validateProtocols(); err != nil {
		return err
	}
	if p.Limit < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", p.Limit)
	}
	if p.SendQueueLimit < 0 {
		return fmt.Errorf("send_queue_limit must be non-negative, got %d", p.SendQueueLimit)
	}

	return nil
}

// validateProtocols validates that protocol combinations are valid.
func (p *PortConfig) validateProtocols() error {
	protocols := parseProtocols(p.Protocol)

	hasWebSocket := false
	hasHTTP := false
	hasGRPC := false

	for _, protocol := range protocols {
		switch protocol {
		case "ws":
			hasWebSocket = true
		case "http":
			hasHTTP = true
		case "grpc":
			hasGRPC = true
		default:
			return fmt.Errorf("unknown protocol: %s", protocol)
		}
	}

	// Each server owns its listener, so protocols cannot share a port
	if hasWebSocket && (hasHTTP || hasGRPC) {
		return fmt.Errorf("websocket cannot share a port with other protocols")
	}
	if hasGRPC && hasHTTP {
		return fmt.Errorf("grpc cannot share a port with other protocols")
	}

	return nil
}

// hasProtocol checks whether a protocol list contains the given protocol.
func hasProtocol(protocols, target string) bool {
	for _, p := range parseProtocols(protocols) {
		if p == target {
			return true
		}
	}
	return false
}

// parseProtocols parses a comma or space separated protocol string.
func parseProtocols(protocolStr string) []string {
	fields := strings.FieldsFunc(protocolStr, func(r rune) bool {
		return r == ',' || r == ' '
	})

	protocols := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			protocols = append(protocols, f)
		}
	}
	return protocols
}
