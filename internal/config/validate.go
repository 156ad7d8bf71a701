package config

import (
	"fmt"
	"net/url"
)

// Validate checks that the configuration is valid and complete.
// It returns an error if required fields are missing or values are invalid.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateTransports(cfg); err != nil {
		return fmt.Errorf("invalid transport config: %w", err)
	}

	if err := validateHTTP(cfg); err != nil {
		return fmt.Errorf("invalid http config: %w", err)
	}

	if err := validateSession(cfg); err != nil {
		return fmt.Errorf("invalid session config: %w", err)
	}

	return nil
}

// validateTransports ensures at least one transport is enabled; a peer with
// no transport can never receive the initialize request.
func validateTransports(cfg *Config) error {
	if !cfg.StdioEnabled && !cfg.HTTPEnabled && !cfg.WSEnabled {
		return fmt.Errorf("at least one of MCP_PEER_STDIO_ENABLED, MCP_PEER_HTTP_ENABLED, MCP_PEER_WS_ENABLED must be true")
	}
	return nil
}

// validateHTTP validates the streamable-HTTP transport's fields, only when
// that transport is enabled.
func validateHTTP(cfg *Config) error {
	if !cfg.HTTPEnabled {
		return nil
	}

	if cfg.HTTPAddr == "" {
		return fmt.Errorf("MCP_PEER_HTTP_ADDR is required when HTTP transport is enabled")
	}

	if cfg.BaseURL != "" {
		parsed, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid MCP_PEER_BASE_URL: %w", err)
		}
		if !parsed.IsAbs() {
			return fmt.Errorf("MCP_PEER_BASE_URL must be an absolute URL")
		}
	}

	if cfg.ReadTimeout <= 0 {
		return fmt.Errorf("MCP_PEER_READ_TIMEOUT must be positive")
	}
	if cfg.WriteTimeout <= 0 {
		return fmt.Errorf("MCP_PEER_WRITE_TIMEOUT must be positive")
	}
	if cfg.IdleTimeout < 0 {
		return fmt.Errorf("MCP_PEER_IDLE_TIMEOUT must be non-negative")
	}

	return nil
}

// validateSession validates session-manager tuning knobs.
func validateSession(cfg *Config) error {
	if cfg.SessionRingCapacity <= 0 {
		return fmt.Errorf("MCP_PEER_SESSION_RING_CAPACITY must be positive")
	}
	if cfg.ShutdownGrace <= 0 {
		return fmt.Errorf("MCP_PEER_SHUTDOWN_GRACE must be positive")
	}
	return nil
}
