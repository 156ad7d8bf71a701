// Package inprocess implements an in-memory transport.Transport pair for
// wiring two peer.Peer instances together without a socket: one side's Send
// feeds the other side's Recv over a buffered channel. Used by tests and by
// callers embedding both ends of an MCP session in one process.
package inprocess

import (
	"context"
	"sync"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
	"github.com/flowmesh-dev/mcp-peer/internal/transport"
)

const defaultBuffer = 64

// Transport is one end of an in-process pair. Send enqueues onto the
// remote's inbound channel; Recv dequeues from its own.
type Transport struct {
	out chan protocol.Message
	in  chan protocol.Message

	closeOnce sync.Once
	closed    chan struct{}
}

// NewPair returns two linked Transports: a's Send is b's Recv, and vice
// versa.
func NewPair() (a, b *Transport) {
	ab := make(chan protocol.Message, defaultBuffer)
	ba := make(chan protocol.Message, defaultBuffer)

	a = &Transport{out: ab, in: ba, closed: make(chan struct{})}
	b = &Transport{out: ba, in: ab, closed: make(chan struct{})}
	return a, b
}

// Send delivers msg to the paired Transport's Recv, in order relative to
// other Send calls on this Transport (a single internal mutex is not
// needed: Go channels already serialize sends).
func (t *Transport) Send(ctx context.Context, msg protocol.Message) error {
	select {
	case <-t.closed:
		return transport.ErrClosed
	default:
	}

	select {
	case t.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.closed:
		return transport.ErrClosed
	}
}

// Recv blocks until a message arrives, ctx is cancelled, or Close is
// called.
func (t *Transport) Recv(ctx context.Context) (protocol.Message, error) {
	select {
	case msg, ok := <-t.in:
		if !ok {
			return nil, transport.ErrClosed
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.closed:
		return nil, transport.ErrClosed
	}
}

// Close marks this end closed. It does not close the paired Transport; call
// Close on both ends to fully tear down a pair.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}
