package session

import (
	"context"
	"sync"
	"time"

	"github.com/flowmesh-dev/mcp-peer/internal/peer"
)

// Session pairs one streamable-HTTP client connection with its Peer and the
// ring buffer of outbound events that back SSE resumption.
type Session struct {
	ID        string
	Peer      *peer.Peer
	CreatedAt time.Time

	ring *ring

	mu       sync.Mutex
	lastSeen time.Time
	closed   bool
}

func newSession(id string, p *peer.Peer, ringCapacity int) *Session {
	p.SetSessionID(id)
	now := time.Now()
	return &Session{
		ID:        id,
		Peer:      p,
		CreatedAt: now,
		lastSeen:  now,
		ring:      newRing(ringCapacity),
	}
}

// Publish appends an outbound event (a serialized JSON-RPC message) to the
// session's resumption buffer and returns its event id for the SSE frame.
func (s *Session) Publish(data []byte) int64 {
	return s.ring.Append(data)
}

// Replay returns every buffered event after lastEventID, for resuming an SSE
// stream via the Last-Event-Id header. It returns errOutOfWindow if
// lastEventID has already been evicted from the ring.
func (s *Session) Replay(lastEventID int64) ([][]byte, error) {
	return s.ring.Since(lastEventID)
}

// Touch records activity for idle-timeout bookkeeping.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// IdleSince reports how long it has been since the session last saw
// activity.
func (s *Session) IdleSince() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastSeen)
}

// Close closes the session's Peer. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Peer.Close()
}
