// Command mcp-peer runs an MCP server peer exposing the sum/sub/calculator
// demo tools over whichever transports its configuration enables: stdio,
// streamable HTTP, and/or websocket. Any combination may run concurrently
// in one process.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/flowmesh-dev/mcp-peer/internal/config"
	"github.com/flowmesh-dev/mcp-peer/internal/demo"
	"github.com/flowmesh-dev/mcp-peer/internal/httpmw"
	"github.com/flowmesh-dev/mcp-peer/internal/peer"
	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
	"github.com/flowmesh-dev/mcp-peer/internal/session"
	"github.com/flowmesh-dev/mcp-peer/internal/toolrouter"
	"github.com/flowmesh-dev/mcp-peer/internal/transport"
	"github.com/flowmesh-dev/mcp-peer/internal/transport/httpstream"
	"github.com/flowmesh-dev/mcp-peer/internal/transport/stdio"
	"github.com/flowmesh-dev/mcp-peer/internal/transport/websocket"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the flags the root command accepts: --config names the
// file config.LoadLayered reads (environment variables take precedence over
// it), and --manifest, when set, overrides the loaded manifest path.
type rootOptions struct {
	configPath   string
	manifestPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "mcp-peer",
		Short:         "Serve an MCP peer over stdio, streamable HTTP, and/or websocket",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to a config file or .env file (env vars always take precedence)")
	cmd.Flags().StringVar(&opts.manifestPath, "manifest", "", "path to a tool manifest YAML file, overriding MCP_PEER_MANIFEST_PATH")

	return cmd
}

func run(ctx context.Context, opts *rootOptions) error {
	cfg, err := config.LoadLayered(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.manifestPath != "" {
		cfg.ManifestPath = opts.manifestPath
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	router := toolrouter.New()
	if err := demo.Register(router); err != nil {
		return fmt.Errorf("register demo tools: %w", err)
	}

	serverInfo := protocol.Implementation{Name: cfg.ServerName, Version: cfg.ServerVersion}
	caps := protocol.Capabilities{Tools: &protocol.ToolsCapability{}}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ManifestPath != "" {
		go config.WatchManifest(cfg.ManifestPath, func(path string) {
			logger.Info("tool manifest changed, restart to pick up new entries", "path", path)
		}, ctx.Done(), logger)
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	if cfg.StdioEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runStdio(ctx, cfg, serverInfo, caps, router, logger, errCh)
		}()
	}

	if cfg.HTTPEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runHTTP(ctx, cfg, serverInfo, caps, router, logger, errCh)
		}()
	}

	if cfg.WSEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWebsocket(ctx, cfg, serverInfo, caps, router, logger, errCh)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case err := <-errCh:
		stop()
		<-done
		return err
	case <-done:
		return nil
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func newServerPeer(sender transport.Sink, cfg *config.Config, info protocol.Implementation, caps protocol.Capabilities, router *toolrouter.Router, logger *slog.Logger) *peer.Peer {
	return peer.New(sender, peer.Options{
		Role:         peer.RoleServer,
		Info:         info,
		Capabilities: caps,
		Tools:        router,
		Logger:       logger,
	})
}

func runStdio(ctx context.Context, cfg *config.Config, info protocol.Implementation, caps protocol.Capabilities, router *toolrouter.Router, logger *slog.Logger, errCh chan<- error) {
	tr := stdio.New(os.Stdin, os.Stdout)
	p := newServerPeer(tr, cfg, info, caps, router, logger)

	logger.Info("stdio transport ready")
	if err := transport.Loop(ctx, tr, p, logger); err != nil {
		errCh <- fmt.Errorf("stdio transport: %w", err)
	}
}

func runHTTP(ctx context.Context, cfg *config.Config, info protocol.Implementation, caps protocol.Capabilities, router *toolrouter.Router, logger *slog.Logger, errCh chan<- error) {
	manager := session.NewManager(cfg.SessionRingCapacity)
	newPeer := func(sender transport.Sink) *peer.Peer {
		return newServerPeer(sender, cfg, info, caps, router, logger)
	}

	srv := httpstream.NewServer(manager, newPeer, cfg.AuthHeaderName, logger)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		manager.CloseAll(shutdownCtx)
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("streamable-HTTP transport ready", "addr", cfg.HTTPAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errCh <- fmt.Errorf("http transport: %w", err)
	}
}

func runWebsocket(ctx context.Context, cfg *config.Config, info protocol.Implementation, caps protocol.Capabilities, router *toolrouter.Router, logger *slog.Logger, errCh chan<- error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		tr, err := websocket.Accept(w, r)
		if err != nil {
			logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		p := newServerPeer(tr, cfg, info, caps, router, logger)
		if err := transport.Loop(r.Context(), tr, p, logger); err != nil {
			logger.Warn("websocket connection closed", "error", err)
		}
	})

	wsServer := &http.Server{
		Addr:    cfg.WSAddr,
		Handler: httpmw.Chain(mux, httpmw.Logging(logger), httpmw.Recovery(logger)),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		_ = wsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("websocket transport ready", "addr", cfg.WSAddr)
	if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errCh <- fmt.Errorf("websocket transport: %w", err)
	}
}
