package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadLayered builds a Config the way Load does, but layers three sources in
// increasing priority: built-in defaults, an optional config file (YAML,
// TOML, or .env via godotenv), and the process environment
// (MCP_PEER_-prefixed). This is the entry point cmd/mcp-peer uses; Load
// remains for callers that only want the flat env-var behavior.
func LoadLayered(configPath string) (*Config, error) {
	if configPath != "" {
		if err := godotenv.Load(configPath); err != nil && filepath.Ext(configPath) == ".env" {
			return nil, fmt.Errorf("load env file %s: %w", configPath, err)
		}
	} else {
		// A missing .env in the working directory is not an error; it is
		// the common case when configuration comes entirely from the
		// environment.
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetEnvPrefix("MCP_PEER")
	v.AutomaticEnv()

	v.SetDefault("server_name", "mcp-peer")
	v.SetDefault("server_version", "0.1.0")
	v.SetDefault("stdio_enabled", true)
	v.SetDefault("http_enabled", false)
	v.SetDefault("ws_enabled", false)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("base_url", "")
	v.SetDefault("read_timeout", "30s")
	v.SetDefault("write_timeout", "30s")
	v.SetDefault("idle_timeout", "120s")
	v.SetDefault("ws_addr", ":8081")
	v.SetDefault("session_ring_capacity", 1024)
	v.SetDefault("shutdown_grace", "30s")
	v.SetDefault("auth_header", "Authorization")
	v.SetDefault("manifest_path", "")
	v.SetDefault("log_level", "info")

	if configPath != "" && filepath.Ext(configPath) != ".env" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
	}

	readTimeout, err := time.ParseDuration(v.GetString("read_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}
	writeTimeout, err := time.ParseDuration(v.GetString("write_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}
	idleTimeout, err := time.ParseDuration(v.GetString("idle_timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid idle_timeout: %w", err)
	}
	shutdownGrace, err := time.ParseDuration(v.GetString("shutdown_grace"))
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown_grace: %w", err)
	}

	cfg := &Config{
		ServerName:          v.GetString("server_name"),
		ServerVersion:       v.GetString("server_version"),
		StdioEnabled:        v.GetBool("stdio_enabled"),
		HTTPEnabled:         v.GetBool("http_enabled"),
		WSEnabled:           v.GetBool("ws_enabled"),
		HTTPAddr:            v.GetString("http_addr"),
		BaseURL:             v.GetString("base_url"),
		ReadTimeout:         readTimeout,
		WriteTimeout:        writeTimeout,
		IdleTimeout:         idleTimeout,
		WSAddr:              v.GetString("ws_addr"),
		SessionRingCapacity: v.GetInt("session_ring_capacity"),
		ShutdownGrace:       shutdownGrace,
		AuthHeaderName:      v.GetString("auth_header"),
		ManifestPath:        v.GetString("manifest_path"),
		LogLevel:            v.GetString("log_level"),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// WatchManifest watches manifestPath for writes and invokes onChange
// with its new contents' path. It runs until ctxDone is closed. A manifest
// path left empty is a no-op: there is nothing to watch.
func WatchManifest(manifestPath string, onChange func(path string), ctxDone <-chan struct{}, logger *slog.Logger) {
	if manifestPath == "" {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("manifest watcher setup failed", "error", err)
		return
	}
	defer w.Close()

	dir := filepath.Dir(manifestPath)
	if err := w.Add(dir); err != nil {
		logger.Warn("manifest watcher add failed", "dir", dir, "error", err)
		return
	}

	for {
		select {
		case <-ctxDone:
			return
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("manifest watcher error", "error", err)
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if !e.Has(fsnotify.Write | fsnotify.Create | fsnotify.Rename) {
				continue
			}
			if filepath.Clean(e.Name) != filepath.Clean(manifestPath) {
				continue
			}
			onChange(manifestPath)
		}
	}
}
