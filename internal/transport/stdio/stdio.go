// Package stdio implements the newline-delimited-JSON transport spec.md §6
// names for the stdio framing: one JSON-RPC object (or batch array) per
// line, terminated by \n, with embedded newlines escaped by encoding/json
// as part of normal string quoting.
package stdio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
	"github.com/flowmesh-dev/mcp-peer/internal/transport"
)

// maxLineSize bounds a single JSON-RPC line; bufio.Scanner's default 64KiB
// token size is too small for larger tool results or resource reads.
const maxLineSize = 16 * 1024 * 1024

// Transport implements transport.Transport over a pair of byte streams: one
// JSON-RPC message (or batch) per line on each side.
type Transport struct {
	r *bufio.Scanner

	writeMu sync.Mutex
	w       io.Writer

	closeOnce sync.Once
	closed    chan struct{}

	// pending holds messages parsed from a single batched line, drained
	// one at a time by Recv.
	pendingMu sync.Mutex
	pending   []protocol.Message
}

// New wraps r/w as a stdio transport. Typical callers pass os.Stdin and
// os.Stdout for a server process, or the two ends of an os.Pipe in tests.
func New(r io.Reader, w io.Writer) *Transport {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	return &Transport{
		r:      scanner,
		w:      w,
		closed: make(chan struct{}),
	}
}

// Send writes msg as one JSON line.
func (t *Transport) Send(ctx context.Context, msg protocol.Message) error {
	select {
	case <-t.closed:
		return transport.ErrClosed
	default:
	}

	raw, err := protocol.MarshalMessage(msg)
	if err != nil {
		return transport.NewError(transport.ErrWriteFailed, err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.w.Write(raw); err != nil {
		return transport.NewError(transport.ErrWriteFailed, err)
	}
	if _, err := t.w.Write([]byte("\n")); err != nil {
		return transport.NewError(transport.ErrWriteFailed, err)
	}
	return nil
}

// Recv returns the next message, draining a previously-read batched line
// before scanning a new one. It returns transport.ErrClosed when the
// underlying reader hits EOF or Close was called.
func (t *Transport) Recv(ctx context.Context) (protocol.Message, error) {
	t.pendingMu.Lock()
	if len(t.pending) > 0 {
		msg := t.pending[0]
		t.pending = t.pending[1:]
		t.pendingMu.Unlock()
		return msg, nil
	}
	t.pendingMu.Unlock()

	select {
	case <-t.closed:
		return nil, transport.ErrClosed
	default:
	}

	if !t.r.Scan() {
		if err := t.r.Err(); err != nil {
			return nil, transport.NewError(transport.ErrReadFailed, err)
		}
		return nil, transport.ErrClosed
	}

	line := t.r.Bytes()
	if len(line) == 0 {
		return t.Recv(ctx)
	}

	msgs, err := protocol.ParseTopLevel(line)
	if err != nil {
		return nil, transport.NewError(transport.ErrDecodeFailed, err)
	}
	if len(msgs) == 0 {
		return nil, transport.NewError(transport.ErrDecodeFailed, fmt.Errorf("empty message line"))
	}

	t.pendingMu.Lock()
	t.pending = msgs[1:]
	t.pendingMu.Unlock()

	return msgs[0], nil
}

// Close causes subsequent Send calls, and Recv calls once any messages left
// from an already-read batch are drained, to fail with transport.ErrClosed,
// and closes the writer if it is an io.Closer. It does not close the
// reader, so a Recv already blocked reading a line returns only when that
// read does. It is idempotent.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
		if closer, ok := t.w.(io.Closer); ok {
			_ = closer.Close()
		}
	})
	return nil
}
