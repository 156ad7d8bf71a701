// Package session implements the streamable-HTTP session manager: an
// Mcp-Session-Id-keyed map of sessions, each pairing a peer.Peer with a
// bounded ring buffer of outbound events for SSE resumption.
package session

import (
	"context"
	"fmt"
	"sync"

	internalerrors "github.com/flowmesh-dev/mcp-peer/internal/errors"
	"github.com/flowmesh-dev/mcp-peer/internal/peer"
)

// DefaultRingCapacity is the default number of buffered outbound events per
// session, matching spec.md §4.7's chosen default.
const DefaultRingCapacity = 1024

// ErrOutOfWindow is returned by Session.Replay when the requested resume
// point has already been evicted from a session's ring buffer. Transports
// should translate this into an HTTP 404, per spec.md's resolution of its
// own Open Question.
var ErrOutOfWindow = errOutOfWindow

// ErrUnknownSession indicates the Mcp-Session-Id named no live session.
var ErrUnknownSession = fmt.Errorf("unknown session")

// Manager owns the set of live streamable-HTTP sessions.
type Manager struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	ringCapacity int
}

// NewManager creates an empty Manager. ringCapacity <= 0 uses
// DefaultRingCapacity.
func NewManager(ringCapacity int) *Manager {
	if ringCapacity <= 0 {
		ringCapacity = DefaultRingCapacity
	}
	return &Manager{sessions: make(map[string]*Session), ringCapacity: ringCapacity}
}

// Create mints a new session id, wraps p in a Session, and registers it.
func (m *Manager) Create(p *peer.Peer) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, internalerrors.New("session", "Create", internalerrors.ErrInternal, err)
	}

	s := newSession(id, p, m.ringCapacity)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	return s, nil
}

// Get retrieves a live session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, exists := m.sessions[id]
	if !exists {
		return nil, internalerrors.New("session", "Get", internalerrors.ErrNotFound, ErrUnknownSession).
			WithContext("session_id", id)
	}
	return s, nil
}

// Delete closes and removes a session. It is a no-op if the id is unknown.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, exists := m.sessions[id]
	if exists {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !exists {
		return nil
	}
	return s.Close(ctx)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every live session, for process shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close(ctx)
	}
}
