package config

import (
	"strings"
	"testing"
	"time"
)

// validConfig returns a valid configuration for testing.
// Tests can override specific fields as needed.
func validConfig() *Config {
	return &Config{
		ServerName:          "mcp-peer",
		ServerVersion:       "0.1.0",
		StdioEnabled:        true,
		HTTPEnabled:         true,
		HTTPAddr:            ":8080",
		BaseURL:             "https://example.com",
		ReadTimeout:         30 * time.Second,
		WriteTimeout:        30 * time.Second,
		IdleTimeout:         120 * time.Second,
		SessionRingCapacity: 1024,
		ShutdownGrace:       30 * time.Second,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		config      *Config
		wantErr     bool
		errContains string
	}{
		{
			name:    "valid config with all required fields",
			config:  validConfig(),
			wantErr: false,
		},
		{
			name: "no transports enabled",
			config: func() *Config {
				c := validConfig()
				c.StdioEnabled = false
				c.HTTPEnabled = false
				c.WSEnabled = false
				return c
			}(),
			wantErr:     true,
			errContains: "STDIO_ENABLED",
		},
		{
			name: "stdio only is valid",
			config: func() *Config {
				c := validConfig()
				c.StdioEnabled = true
				c.HTTPEnabled = false
				return c
			}(),
			wantErr: false,
		},
		{
			name: "empty HTTPAddr with HTTP enabled",
			config: func() *Config {
				c := validConfig()
				c.HTTPAddr = ""
				return c
			}(),
			wantErr:     true,
			errContains: "HTTP_ADDR",
		},
		{
			name: "invalid BaseURL format",
			config: func() *Config {
				c := validConfig()
				c.BaseURL = "not-a-url"
				return c
			}(),
			wantErr:     true,
			errContains: "BASE_URL",
		},
		{
			name: "empty BaseURL is allowed (only used for logging)",
			config: func() *Config {
				c := validConfig()
				c.BaseURL = ""
				return c
			}(),
			wantErr: false,
		},
		{
			name: "negative read timeout",
			config: func() *Config {
				c := validConfig()
				c.ReadTimeout = -1 * time.Second
				return c
			}(),
			wantErr:     true,
			errContains: "READ_TIMEOUT",
		},
		{
			name: "negative write timeout",
			config: func() *Config {
				c := validConfig()
				c.WriteTimeout = -1 * time.Second
				return c
			}(),
			wantErr:     true,
			errContains: "WRITE_TIMEOUT",
		},
		{
			name: "negative idle timeout",
			config: func() *Config {
				c := validConfig()
				c.IdleTimeout = -1 * time.Second
				return c
			}(),
			wantErr:     true,
			errContains: "IDLE_TIMEOUT",
		},
		{
			name: "zero idle timeout is valid",
			config: func() *Config {
				c := validConfig()
				c.IdleTimeout = 0
				return c
			}(),
			wantErr: false,
		},
		{
			name: "zero read timeout is invalid",
			config: func() *Config {
				c := validConfig()
				c.ReadTimeout = 0
				return c
			}(),
			wantErr:     true,
			errContains: "READ_TIMEOUT",
		},
		{
			name: "zero session ring capacity is invalid",
			config: func() *Config {
				c := validConfig()
				c.SessionRingCapacity = 0
				return c
			}(),
			wantErr:     true,
			errContains: "SESSION_RING_CAPACITY",
		},
		{
			name: "zero shutdown grace is invalid",
			config: func() *Config {
				c := validConfig()
				c.ShutdownGrace = 0
				return c
			}(),
			wantErr:     true,
			errContains: "SHUTDOWN_GRACE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(tt.config)

			if tt.wantErr {
				if err == nil {
					t.Fatal("Validate() error = nil, want error")
				}
				if tt.errContains != "" && !strings.Contains(strings.ToUpper(err.Error()), strings.ToUpper(tt.errContains)) {
					t.Errorf("Validate() error = %q, want to contain %q", err.Error(), tt.errContains)
				}
				return
			}

			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestValidate_NilConfig(t *testing.T) {
	t.Parallel()

	err := Validate(nil)
	if err == nil {
		t.Error("Validate(nil) should return error")
	}
}

func TestValidate_HTTPDisabledSkipsHTTPChecks(t *testing.T) {
	t.Parallel()

	config := validConfig()
	config.HTTPEnabled = false
	config.HTTPAddr = ""
	config.BaseURL = "not-a-url"

	if err := Validate(config); err != nil {
		t.Errorf("Validate() unexpected error when HTTP disabled: %v", err)
	}
}
