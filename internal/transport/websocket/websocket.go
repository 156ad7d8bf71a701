// Package websocket implements a transport.Transport over a single
// gorilla/websocket connection: one JSON-RPC message (or batch) per text
// frame, mirroring the framing CodeButler's and brummer's MCP websocket
// upgraders use, generalized from a map[string]interface{} wire format to
// this module's protocol.Message envelope.
package websocket

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
	"github.com/flowmesh-dev/mcp-peer/internal/transport"
)

// Upgrader wraps gorilla/websocket.Upgrader with the permissive CheckOrigin
// used across the pack's MCP websocket examples. Callers embedding this
// module behind their own origin policy should build their own
// websocket.Upgrader and pass the connection it returns to New instead of
// calling Accept.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Accept upgrades an HTTP request to a websocket connection and wraps it as
// a Transport.
func Accept(w http.ResponseWriter, r *http.Request) (*Transport, error) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, transport.NewError(transport.ErrReadFailed, err)
	}
	return New(conn), nil
}

// Transport implements transport.Transport over one gorilla/websocket
// connection. Only one goroutine may call Recv at a time, matching the
// underlying library's single-reader requirement; Send is safe for
// concurrent use.
type Transport struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}

	pendingMu sync.Mutex
	pending   []protocol.Message
}

// New wraps an already-established websocket connection, such as one
// returned by gorilla/websocket's client Dialer.
func New(conn *websocket.Conn) *Transport {
	return &Transport{conn: conn, closed: make(chan struct{})}
}

// Send marshals msg and writes it as one text frame.
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

	if err := t.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return transport.NewError(transport.ErrWriteFailed, err)
	}
	return nil
}

// Recv reads the next text frame and parses it, draining a previously
// received batch frame first. Frame reads are not context-aware (gorilla's
// Conn has no context-cancellable read); callers that need Recv to return
// promptly on ctx cancellation should pair this with Close from a separate
// goroutine.
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

	_, raw, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived) {
			return nil, transport.ErrClosed
		}
		select {
		case <-t.closed:
			return nil, transport.ErrClosed
		default:
		}
		return nil, transport.NewError(transport.ErrReadFailed, err)
	}

	msgs, err := protocol.ParseTopLevel(raw)
	if err != nil {
		return nil, transport.NewError(transport.ErrDecodeFailed, err)
	}
	if len(msgs) == 0 {
		return t.Recv(ctx)
	}

	t.pendingMu.Lock()
	t.pending = msgs[1:]
	t.pendingMu.Unlock()

	return msgs[0], nil
}

// Close sends a close frame and closes the underlying connection. It is
// idempotent.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		t.writeMu.Lock()
		_ = t.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.writeMu.Unlock()
		err = t.conn.Close()
	})
	return err
}
