package client

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration defaults.
const (
	// DefaultProtocolVersion is the client protocol version sent to the hub.
	DefaultProtocolVersion = "1.5"

	// DefaultNegotiateTimeout bounds the negotiate and start HTTP requests.
	DefaultNegotiateTimeout = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	// HubURL is the hub endpoint (http or https). Required.
	HubURL string `yaml:"hub_url"`

	// ConnectionData describes the hubs the client subscribes to. Sent
	// verbatim in endpoint URLs.
	ConnectionData string `yaml:"connection_data"`

	// QueryString is appended to every endpoint URL ("a=b&c=d" form).
	QueryString string `yaml:"query_string"`

	// Headers are sent with every HTTP request and the WebSocket
	// handshake (authorization, cookies).
	Headers map[string]string `yaml:"headers"`

	// ProtocolVersion is the client protocol version
	// (default: DefaultProtocolVersion).
	ProtocolVersion string `yaml:"protocol_version"`

	// NegotiateTimeout bounds the negotiate and start HTTP requests
	// (default: DefaultNegotiateTimeout).
	NegotiateTimeout time.Duration `yaml:"negotiate_timeout"`

	// HandshakeTimeout bounds the WebSocket handshake. Zero uses the
	// transport default.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// KeepAliveTimeout overrides the keep-alive timeout. Zero uses the
	// value from negotiation, falling back to the transport default.
	KeepAliveTimeout time.Duration `yaml:"keep_alive_timeout"`

	// ReconnectWindow overrides how long reconnection is attempted before
	// giving up. Zero uses the disconnect timeout from negotiation.
	ReconnectWindow time.Duration `yaml:"reconnect_window"`

	// AutoReconnect enables automatic reconnection (default: true).
	AutoReconnect bool `yaml:"auto_reconnect"`

	// InsecureSkipVerify disables TLS certificate verification.
	// For development only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// DefaultConfig returns a Config with defaults applied. HubURL must still
// be set by the caller.
func DefaultConfig() Config {
	return Config{
		ProtocolVersion:  DefaultProtocolVersion,
		NegotiateTimeout: DefaultNegotiateTimeout,
		AutoReconnect:    true,
	}
}

// LoadConfig reads a YAML config file. Fields absent from the file keep
// their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration and fills derived defaults.
func (c *Config) Validate() error {
	if c.HubURL == "" {
		return fmt.Errorf("hub_url is required")
	}
	u, err := url.Parse(c.HubURL)
	if err != nil {
		return fmt.Errorf("hub_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("hub_url: scheme must be http or https, got %q", u.Scheme)
	}
	if c.ProtocolVersion == "" {
		c.ProtocolVersion = DefaultProtocolVersion
	}
	if c.NegotiateTimeout == 0 {
		c.NegotiateTimeout = DefaultNegotiateTimeout
	}
	return nil
}
