package httpstream

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
	"github.com/flowmesh-dev/mcp-peer/internal/session"
	"github.com/flowmesh-dev/mcp-peer/internal/transport"
)

// frame is one outbound JSON-RPC message tagged with its ring-buffer event
// id, for delivery to a live SSE subscriber.
type frame struct {
	id   int64
	data []byte
}

// sink is the per-session transport.Sink a Server binds a session's Peer to.
// A Response matching a POST's waiter is delivered synchronously to that
// waiter; everything else (server-initiated requests, notifications, and
// responses nobody is waiting for anymore) is published to the session's
// ring buffer and fanned out to any connected SSE GET streams.
type sink struct {
	mu      sync.Mutex
	session *session.Session
	waiters map[string]chan *protocol.Response

	subMu sync.RWMutex
	subs  map[string]chan frame
}

func newSink() *sink {
	return &sink{
		waiters: make(map[string]chan *protocol.Response),
		subs:    make(map[string]chan frame),
	}
}

// bindSession attaches the session this sink publishes into. Sessions are
// minted by session.Manager.Create after the Peer (and therefore this sink)
// already exists, so binding happens as a second step.
func (s *sink) bindSession(sess *session.Session) {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
}

// Send implements peer.MessageSender / transport.Sink.
func (s *sink) Send(ctx context.Context, msg protocol.Message) error {
	raw, err := protocol.MarshalMessage(msg)
	if err != nil {
		return transport.NewError(transport.ErrWriteFailed, err)
	}

	if resp, ok := msg.(*protocol.Response); ok {
		key := idKey(resp.ID)
		s.mu.Lock()
		ch, exists := s.waiters[key]
		if exists {
			delete(s.waiters, key)
		}
		s.mu.Unlock()

		if exists {
			ch <- resp
			return nil
		}
	}

	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	var id int64
	if sess != nil {
		id = sess.Publish(raw)
	}

	s.broadcast(frame{id: id, data: raw})
	return nil
}

// registerWaiter opens a one-shot channel that Send delivers a matching
// Response to. Callers must eventually call dropWaiter if they stop
// waiting (request context cancelled) to avoid leaking the slot.
func (s *sink) registerWaiter(id any) chan *protocol.Response {
	ch := make(chan *protocol.Response, 1)
	s.mu.Lock()
	s.waiters[idKey(id)] = ch
	s.mu.Unlock()
	return ch
}

func (s *sink) dropWaiter(id any) {
	s.mu.Lock()
	delete(s.waiters, idKey(id))
	s.mu.Unlock()
}

// subscribe registers a new live SSE listener and returns its id (for
// unsubscribe) and the channel of frames to stream to the client.
func (s *sink) subscribe() (id string, frames chan frame) {
	id = uuid.NewString()
	frames = make(chan frame, 64)

	s.subMu.Lock()
	s.subs[id] = frames
	s.subMu.Unlock()
	return id, frames
}

func (s *sink) unsubscribe(id string) {
	s.subMu.Lock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
	s.subMu.Unlock()
}

// broadcast fans f out to every live subscriber, dropping it for any
// subscriber whose buffer is full rather than blocking the publisher.
func (s *sink) broadcast(f frame) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for _, ch := range s.subs {
		select {
		case ch <- f:
		default:
		}
	}
}

// idKey normalizes a JSON-RPC id for use as a map key, mirroring
// internal/registry's id normalization.
func idKey(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
