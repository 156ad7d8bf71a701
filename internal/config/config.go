// Package config provides configuration management for the MCP peer runtime:
// which transports to serve, their addresses and timeouts, session and
// shutdown tuning, and where to find an optional tool manifest.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds the complete peer configuration in a flat structure.
type Config struct {
	// Identity advertised in the initialize handshake.
	ServerName    string
	ServerVersion string

	// Transports to serve. At least one of Stdio/HTTP/WebSocket must be
	// enabled; HTTPAddr/WSAddr are only meaningful when the corresponding
	// flag is true.
	StdioEnabled bool
	HTTPEnabled  bool
	WSEnabled    bool

	// HTTPAddr is the address the streamable-HTTP transport binds (e.g. ":8080").
	HTTPAddr string

	// BaseURL is the canonical external URL for this server, used only for
	// logging and diagnostics (no auth policy is derived from it).
	BaseURL string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// WSAddr is the address the websocket transport binds.
	WSAddr string

	// SessionRingCapacity bounds the per-session SSE replay buffer
	// (spec.md §4.7; default 1024).
	SessionRingCapacity int

	// ShutdownGrace bounds how long the streamable-HTTP and websocket
	// listeners, and the HTTP session manager's CloseAll, are given to shut
	// down once the process is asked to stop (default 30s). Peer.Close does
	// not wait for outstanding handler goroutines.
	ShutdownGrace time.Duration

	// AuthHeaderName is the header a passthrough token is read from. No
	// validation policy is applied to it (spec.md §1 non-goals); it is
	// only decoded for log correlation and forwarded to handler context.
	AuthHeaderName string

	// ManifestPath optionally points at a YAML tool manifest (the format
	// internal/toolrouter.LoadManifest reads). cmd/mcp-peer watches it and
	// logs changes; it does not load the manifest or register its tools.
	// Empty means no manifest is watched.
	ManifestPath string

	// LogLevel controls the slog level: "debug", "info", "warn", "error".
	LogLevel string
}

// Load reads configuration from environment variables and returns a Config.
// It sets default values for optional fields and validates the configuration.
func Load() (*Config, error) {
	readTimeout, err := parseDurationWithDefault("MCP_PEER_READ_TIMEOUT", "30s")
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_PEER_READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := parseDurationWithDefault("MCP_PEER_WRITE_TIMEOUT", "30s")
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_PEER_WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := parseDurationWithDefault("MCP_PEER_IDLE_TIMEOUT", "120s")
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_PEER_IDLE_TIMEOUT: %w", err)
	}

	shutdownGrace, err := parseDurationWithDefault("MCP_PEER_SHUTDOWN_GRACE", "30s")
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_PEER_SHUTDOWN_GRACE: %w", err)
	}

	ringCap, err := parseIntWithDefault("MCP_PEER_SESSION_RING_CAPACITY", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_PEER_SESSION_RING_CAPACITY: %w", err)
	}

	cfg := &Config{
		ServerName:    getEnvWithDefault("MCP_PEER_SERVER_NAME", "mcp-peer"),
		ServerVersion: getEnvWithDefault("MCP_PEER_SERVER_VERSION", "0.1.0"),

		StdioEnabled: parseBoolWithDefault("MCP_PEER_STDIO_ENABLED", true),
		HTTPEnabled:  parseBoolWithDefault("MCP_PEER_HTTP_ENABLED", false),
		WSEnabled:    parseBoolWithDefault("MCP_PEER_WS_ENABLED", false),

		HTTPAddr:     getEnvWithDefault("MCP_PEER_HTTP_ADDR", ":8080"),
		BaseURL:      os.Getenv("MCP_PEER_BASE_URL"),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,

		WSAddr: getEnvWithDefault("MCP_PEER_WS_ADDR", ":8081"),

		SessionRingCapacity: ringCap,
		ShutdownGrace:       shutdownGrace,

		AuthHeaderName: getEnvWithDefault("MCP_PEER_AUTH_HEADER", "Authorization"),
		ManifestPath:   os.Getenv("MCP_PEER_MANIFEST_PATH"),
		LogLevel:       getEnvWithDefault("MCP_PEER_LOG_LEVEL", "info"),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolWithDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func parseIntWithDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return 0, fmt.Errorf("cannot parse integer %q: %w", value, err)
	}
	return n, nil
}

// parseDurationWithDefault parses a duration from an environment variable.
// If the variable is not set, it uses the default value.
// Returns an error if the value is set but cannot be parsed.
func parseDurationWithDefault(key, defaultValue string) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		duration, err := time.ParseDuration(defaultValue)
		if err != nil {
			return 0, fmt.Errorf("invalid default duration %q: %w", defaultValue, err)
		}
		return duration, nil
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("cannot parse duration %q: %w", value, err)
	}

	return duration, nil
}

// String returns a string representation of the configuration (for debugging).
func (c *Config) String() string {
	return fmt.Sprintf("Config{ServerName: %s, ServerVersion: %s, StdioEnabled: %v, HTTPEnabled: %v, WSEnabled: %v, HTTPAddr: %s, WSAddr: %s, SessionRingCapacity: %d, ShutdownGrace: %v, LogLevel: %s}",
		c.ServerName, c.ServerVersion, c.StdioEnabled, c.HTTPEnabled, c.WSEnabled,
		c.HTTPAddr, c.WSAddr, c.SessionRingCapacity, c.ShutdownGrace, c.LogLevel)
}
