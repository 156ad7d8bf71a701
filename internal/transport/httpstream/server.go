// Package httpstream implements the streamable-HTTP transport: a single
// /mcp endpoint where POST carries JSON-RPC requests/notifications, GET
// opens a resumable SSE stream for server-initiated traffic, and DELETE
// tears a session down. Grounded on brummer's StreamableServer content
// negotiation (POST Accept: text/event-stream vs application/json) and
// i2y-mcpizer's mcphttp handler (SSE framing, Mcp-Session-Id plumbing),
// generalized onto this module's peer.Peer/session.Manager instead of a
// bespoke JSON-RPC struct.
package httpstream

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/flowmesh-dev/mcp-peer/internal/auth"
	"github.com/flowmesh-dev/mcp-peer/internal/httpmw"
	"github.com/flowmesh-dev/mcp-peer/internal/peer"
	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
	"github.com/flowmesh-dev/mcp-peer/internal/session"
	"github.com/flowmesh-dev/mcp-peer/internal/transport"
)

// HeaderSessionID is the header a client echoes back on every request after
// a session is minted, and a server assigns it on the initialize response.
const HeaderSessionID = "Mcp-Session-Id"

// HeaderLastEventID lets a reconnecting SSE client resume from its last
// seen event id.
const HeaderLastEventID = "Last-Event-Id"

// PeerFactory builds a fresh server-role peer.Peer for a new session, wired
// to sender for its outbound traffic.
type PeerFactory func(sender transport.Sink) *peer.Peer

// Server is the streamable-HTTP front end: it owns no transport.Transport
// of its own (each session's wire framing is HTTP itself) and instead
// drives a peer.Peer's HandleMessage directly from request bodies.
type Server struct {
	manager *session.Manager
	newPeer PeerFactory
	logger  *slog.Logger

	// authHeaderName, when non-empty, wraps the handler with passthrough
	// bearer-token extraction for log correlation. Empty disables it.
	authHeaderName string

	mu    sync.RWMutex
	sinks map[string]*sink
}

// NewServer creates a Server. manager owns session lifecycle; newPeer
// builds one fresh Peer per new session.
func NewServer(manager *session.Manager, newPeer PeerFactory, authHeaderName string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		manager:        manager,
		newPeer:        newPeer,
		authHeaderName: authHeaderName,
		logger:         logger,
		sinks:          make(map[string]*sink),
	}
}

// Handler returns the http.Handler serving the /mcp endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleMCP)

	var h http.Handler = mux
	if s.authHeaderName != "" {
		h = auth.Middleware(s.authHeaderName)(h)
	}
	return httpmw.Chain(h, httpmw.Logging(s.logger), httpmw.Recovery(s.logger))
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodGet:
		s.handleGet(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type pendingReply struct {
	id any
	ch chan *protocol.Response
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeRPCError(w, nil, protocol.CodeParseError, "failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	msgs, err := protocol.ParseTopLevel(body)
	if err != nil {
		writeRPCError(w, nil, protocol.CodeParseError, err.Error(), http.StatusBadRequest)
		return
	}

	sessionIDHeader := r.Header.Get(HeaderSessionID)

	var (
		sess       *session.Session
		snk        *sink
		newSession bool
	)

	if sessionIDHeader == "" {
		snk = newSink()
		p := s.newPeer(snk)

		sess, err = s.manager.Create(p)
		if err != nil {
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}
		snk.bindSession(sess)

		s.mu.Lock()
		s.sinks[sess.ID] = snk
		s.mu.Unlock()
		newSession = true
	} else {
		sess, err = s.manager.Get(sessionIDHeader)
		if err != nil {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
		sess.Touch()

		s.mu.RLock()
		snk = s.sinks[sessionIDHeader]
		s.mu.RUnlock()
		if snk == nil {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
	}

	var pending []pendingReply
	for _, msg := range msgs {
		if req, ok := msg.(*protocol.Request); ok {
			pending = append(pending, pendingReply{id: req.ID, ch: snk.registerWaiter(req.ID)})
		}
		if err := sess.Peer.HandleMessage(r.Context(), msg); err != nil {
			s.logger.Warn("failed to handle inbound message", "error", err, "session_id", sess.ID)
		}
	}

	if newSession {
		w.Header().Set(HeaderSessionID, sess.ID)
	}

	if len(pending) == 0 {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	ctx := r.Context()
	responses := make([]protocol.Message, 0, len(pending))
	for _, p := range pending {
		select {
		case resp := <-p.ch:
			responses = append(responses, resp)
		case <-ctx.Done():
			snk.dropWaiter(p.id)
		}
	}

	if acceptsSSE(r) {
		writeSSEResponses(w, responses)
		return
	}
	writeJSONResponses(w, responses)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if !acceptsSSE(r) {
		http.Error(w, "GET requires Accept: text/event-stream", http.StatusNotAcceptable)
		return
	}

	sessionID := r.Header.Get(HeaderSessionID)
	if sessionID == "" {
		http.Error(w, "Mcp-Session-Id header required", http.StatusBadRequest)
		return
	}

	sess, err := s.manager.Get(sessionID)
	if err != nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	sess.Touch()

	s.mu.RLock()
	snk := s.sinks[sessionID]
	s.mu.RUnlock()
	if snk == nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	var (
		replay       [][]byte
		replayFromID int64 = -1
	)
	if lastEventHeader := r.Header.Get(HeaderLastEventID); lastEventHeader != "" {
		lastID, err := strconv.ParseInt(lastEventHeader, 10, 64)
		if err != nil {
			http.Error(w, "invalid Last-Event-Id", http.StatusBadRequest)
			return
		}
		replay, err = sess.Replay(lastID)
		if err != nil {
			if errors.Is(err, session.ErrOutOfWindow) {
				http.Error(w, "resume point no longer available", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to replay events", http.StatusInternalServerError)
			return
		}
		replayFromID = lastID
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	nextID := replayFromID + 1
	for _, data := range replay {
		fmt.Fprintf(w, "id: %d\ndata: %s\n\n", nextID, data)
		nextID++
	}
	flusher.Flush()

	subID, frames := snk.subscribe()
	defer snk.unsubscribe(subID)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			fmt.Fprintf(w, "id: %d\ndata: %s\n\n", f.id, f.data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(HeaderSessionID)
	if sessionID == "" {
		http.Error(w, "Mcp-Session-Id header required", http.StatusBadRequest)
		return
	}

	if err := s.manager.Delete(r.Context(), sessionID); err != nil {
		http.Error(w, "failed to delete session", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	delete(s.sinks, sessionID)
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func acceptsSSE(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

func writeJSONResponses(w http.ResponseWriter, responses []protocol.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if len(responses) == 1 {
		raw, _ := protocol.MarshalMessage(responses[0])
		w.Write(raw)
		return
	}
	raw, _ := protocol.MarshalBatch(responses)
	w.Write(raw)
}

func writeSSEResponses(w http.ResponseWriter, responses []protocol.Message) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, m := range responses {
		raw, err := protocol.MarshalMessage(m)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", raw)
		flusher.Flush()
	}
}

func writeRPCError(w http.ResponseWriter, id any, code int, message string, httpStatus int) {
	resp := &protocol.Response{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      id,
		Error:   protocol.NewError(code, message, nil),
	}
	raw, err := protocol.MarshalMessage(resp)
	if err != nil {
		http.Error(w, message, httpStatus)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	w.Write(raw)
}
