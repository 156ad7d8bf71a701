// Package transport defines the abstract contract a framed JSON-RPC
// transport must satisfy to drive a peer.Peer (spec.md §4.2/§6), plus a
// Loop helper that pumps a transport's Source into a Peer's HandleMessage
// until the source ends. Concrete transports (stdio, in-process, websocket,
// streamable HTTP) live in sibling packages and implement this contract;
// the peer package never imports any of them.
package transport

import (
	"context"
	"errors"
	"log/slog"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
)

// Sink accepts one framed JSON-RPC message at a time. Send must not return
// until the message has been handed to the underlying OS/network primitive;
// it does not guarantee the remote received it.
type Sink interface {
	Send(ctx context.Context, msg protocol.Message) error
}

// Source yields framed JSON-RPC messages one at a time. Recv returns
// ErrClosed when the remote end closed cleanly, or any other error for a
// fatal transport failure.
type Source interface {
	Recv(ctx context.Context) (protocol.Message, error)
}

// Transport is a bidirectional, framed JSON-RPC channel: a Sink to write
// with, a Source to read from, and a Close to tear both down. Every
// concrete implementation must guarantee the four properties spec.md §4.2
// lists: complete frames only, in-order delivery on one logical stream,
// a Close that lets Recv drain and then terminate, and a terminal error
// from Recv on any fatal failure.
type Transport interface {
	Sink
	Source
	Close() error
}

// Peer is the minimal surface transport.Loop needs from a peer.Peer: feed
// it inbound messages. It is satisfied by *peer.Peer without an import
// cycle.
type Peer interface {
	HandleMessage(ctx context.Context, msg protocol.Message) error
}

// Loop reads messages from src until it ends or ctx is cancelled, handing
// each to p.HandleMessage. It returns nil on a clean remote close, or the
// terminal error from Recv otherwise. Callers run Loop in its own goroutine
// and are responsible for eventually calling the transport's Close and the
// peer's Close.
func Loop(ctx context.Context, src Source, p Peer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	for {
		msg, err := src.Recv(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return err
		}

		if err := p.HandleMessage(ctx, msg); err != nil {
			logger.Warn("transport loop: handler returned error", "error", err)
		}
	}
}
