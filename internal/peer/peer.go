// Package peer implements the bidirectional MCP session core: the
// handshake, the steady-state request/response/notification dispatch loop,
// the cancellation and progress protocols, and the two role-specialized
// handler surfaces a peer answers with.
//
// A Peer does not own a transport loop. Something else (an in-process pair,
// a stdio reader, a websocket connection, a streamable-HTTP session) reads
// framed messages and calls HandleMessage for each one; the Peer calls back
// into the supplied MessageSender to write outbound messages.
package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	internalerrors "github.com/flowmesh-dev/mcp-peer/internal/errors"
	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
	"github.com/flowmesh-dev/mcp-peer/internal/registry"
	"github.com/flowmesh-dev/mcp-peer/internal/resources"
	"github.com/flowmesh-dev/mcp-peer/internal/toolrouter"
)

// Options configures a new Peer. The zero value of every field is a usable
// default (no client/server handler, no tools, no resources).
type Options struct {
	Role Role

	// Info identifies this peer in the handshake (clientInfo or serverInfo,
	// depending on Role).
	Info protocol.Implementation

	// Capabilities this peer advertises in the handshake. For a
	// server-role Peer this is protocol.Capabilities; for a client-role
	// Peer it is protocol.ClientCapabilities. The Peer stores it as `any`
	// and type-switches when building the initialize request/result.
	Capabilities any

	Tools     *toolrouter.Router
	Resources *resources.Registry

	ClientHandler       ClientHandler
	ServerHandler       ServerHandler
	NotificationHandler NotificationHandler

	// SessionID identifies the streamable-HTTP session this Peer belongs
	// to, echoed onto every RequestContext it builds. Leave empty for
	// stdio, in-process, and websocket peers.
	SessionID string

	Logger *slog.Logger
}

// Peer is one end of an MCP session: client or server, bound to a
// MessageSender and driven by HandleMessage calls.
type Peer struct {
	role      Role
	info      protocol.Implementation
	sender    MessageSender
	logger    *slog.Logger
	sessionID string

	tools     *toolrouter.Router
	resources *resources.Registry

	clientHandler       ClientHandler
	serverHandler       ServerHandler
	notificationHandler NotificationHandler

	outbound *registry.Registry
	inflight *inflight

	serverCaps protocol.Capabilities
	clientCaps protocol.ClientCapabilities

	initialized    atomic.Bool
	peerInfo       atomic.Pointer[protocol.Implementation]
	peerCaps       atomic.Pointer[protocol.ClientCapabilities]
	peerServerCaps atomic.Pointer[protocol.Capabilities]

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a Peer in the given role, ready to handshake.
func New(sender MessageSender, opts Options) *Peer {
	if opts.Tools == nil {
		opts.Tools = toolrouter.New()
	}
	if opts.Resources == nil {
		opts.Resources = resources.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	p := &Peer{
		role:                opts.Role,
		info:                opts.Info,
		sender:              sender,
		logger:              opts.Logger,
		sessionID:           opts.SessionID,
		tools:               opts.Tools,
		resources:           opts.Resources,
		clientHandler:       opts.ClientHandler,
		serverHandler:       opts.ServerHandler,
		notificationHandler: opts.NotificationHandler,
		outbound:            registry.New(),
		inflight:            newInflight(),
		closed:              make(chan struct{}),
	}

	switch caps := opts.Capabilities.(type) {
	case protocol.Capabilities:
		p.serverCaps = caps
	case protocol.ClientCapabilities:
		p.clientCaps = caps
	}

	if p.clientHandler == nil {
		p.clientHandler = UnimplementedClientHandler{}
	}
	if p.serverHandler == nil {
		p.serverHandler = UnimplementedServerHandler{}
	}

	return p
}

// SetSessionID attaches the streamable-HTTP session id this Peer belongs to,
// echoed onto every RequestContext built from here on. It is set once, by
// the session manager, immediately after construction.
func (p *Peer) SetSessionID(id string) { p.sessionID = id }

// Initialized reports whether the handshake has completed: for a server
// Peer, that notifications/initialized has arrived; for a client Peer, that
// the initialize response has been received.
func (p *Peer) Initialized() bool {
	return p.initialized.Load()
}

// PeerInfo returns the other end's advertised Implementation, available
// once the handshake has progressed past the initialize exchange.
func (p *Peer) PeerInfo() (protocol.Implementation, bool) {
	v := p.peerInfo.Load()
	if v == nil {
		return protocol.Implementation{}, false
	}
	return *v, true
}

// Close marks the Peer closed and drains any outstanding outbound requests
// with ErrPeerClosed, unblocking callers of SendRequest. SendRequest and
// SendNotification calls made after Close fail with ErrPeerClosed.
func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.outbound.Drain(ErrPeerClosed)
	})
	return nil
}

// HandleMessage dispatches one inbound JSON-RPC message: a Request is
// routed to this Peer's handler surface and answered; a Response is
// correlated against an outstanding SendRequest via the outbound registry;
// a Notification is routed to the matching handler or the cancellation
// machinery. Each Request is handled in its own goroutine so a slow handler
// never blocks unrelated traffic; HandleMessage itself returns immediately.
func (p *Peer) HandleMessage(ctx context.Context, msg protocol.Message) error {
	switch m := msg.(type) {
	case *protocol.Request:
		go p.handleRequest(ctx, m)
		return nil
	case *protocol.Response:
		return p.handleResponse(m)
	case *protocol.Notification:
		return p.handleNotification(ctx, m)
	default:
		return fmt.Errorf("peer: unknown message type %T", msg)
	}
}

func (p *Peer) handleResponse(resp *protocol.Response) error {
	if err := p.outbound.Resolve(resp.ID, resp); err != nil {
		p.logger.Warn("response for unknown request id", "id", resp.ID)
		return err
	}
	return nil
}

func (p *Peer) handleNotification(ctx context.Context, n *protocol.Notification) error {
	switch n.Method {
	case protocol.NotificationInitialized:
		p.initialized.Store(true)
		return nil

	case protocol.NotificationCancelled:
		var params protocol.CancelledParams
		if err := unmarshalParams(n.Params, &params); err != nil {
			return err
		}
		p.inflight.cancel(params.RequestID)
		return nil

	case protocol.NotificationProgress:
		return nil // no outbound progress subscribers tracked at this layer yet

	case protocol.NotificationMessage:
		if p.notificationHandler.OnLogMessage != nil {
			var params protocol.LoggingMessageParams
			if err := unmarshalParams(n.Params, &params); err == nil {
				p.notificationHandler.OnLogMessage(params)
			}
		}
		return nil

	case protocol.NotificationResourcesUpdated:
		if p.notificationHandler.OnResourceUpdated != nil {
			var params protocol.ResourceUpdatedParams
			if err := unmarshalParams(n.Params, &params); err == nil {
				p.notificationHandler.OnResourceUpdated(params)
			}
		}
		return nil

	case protocol.NotificationToolsListChanged:
		callIfSet(p.notificationHandler.OnToolsListChanged)
		return nil
	case protocol.NotificationResourcesListChanged:
		callIfSet(p.notificationHandler.OnResourcesListChanged)
		return nil
	case protocol.NotificationPromptsListChanged:
		callIfSet(p.notificationHandler.OnPromptsListChanged)
		return nil
	case protocol.NotificationRootsListChanged:
		callIfSet(p.notificationHandler.OnRootsListChanged)
		return nil

	default:
		p.logger.Debug("unhandled notification", "method", n.Method)
		return nil
	}
}

func callIfSet(fn func()) {
	if fn != nil {
		fn()
	}
}

// SendRequest issues an outbound request and blocks until a matching
// response arrives, the context is cancelled, or the Peer is closed. Per
// spec.md §4.3/§8, a request belonging to a family the remote has not
// advertised is rejected locally, with no transport write at all.
func (p *Peer) SendRequest(ctx context.Context, method string, params any) (*protocol.Response, error) {
	select {
	case <-p.closed:
		return nil, ErrPeerClosed
	default:
	}

	if family := protocol.FamilyOf(method); family != protocol.FamilyNone && !p.remoteAdvertises(family) {
		return nil, internalerrors.New("peer", "SendRequest", internalerrors.ErrBadRequest, protocol.ErrNotCapable).
			WithContext("method", method)
	}

	id := p.outbound.NextID()

	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	wait, err := p.outbound.Register(ctx, id)
	if err != nil {
		return nil, err
	}

	req := &protocol.Request{JSONRPC: protocol.JSONRPCVersion, ID: id, Method: method, Params: raw}
	if err := p.sender.Send(ctx, req); err != nil {
		return nil, internalerrors.New("peer", "SendRequest", internalerrors.ErrInternal, err).
			WithContext("method", method)
	}

	return wait()
}

// SendNotification sends a fire-and-forget notification.
func (p *Peer) SendNotification(ctx context.Context, method string, params any) error {
	select {
	case <-p.closed:
		return ErrPeerClosed
	default:
	}

	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	n := &protocol.Notification{JSONRPC: protocol.JSONRPCVersion, Method: method, Params: raw}
	return p.sender.Send(ctx, n)
}

// Cancel sends notifications/cancelled for requestID, informing the peer
// that the caller is no longer interested in its response.
func (p *Peer) Cancel(ctx context.Context, requestID any, reason string) error {
	return p.SendNotification(ctx, protocol.NotificationCancelled, protocol.CancelledParams{
		RequestID: requestID,
		Reason:    reason,
	})
}

func (p *Peer) sendProgress(token string, progress, total float64, message string) error {
	return p.SendNotification(context.Background(), protocol.NotificationProgress, protocol.ProgressParams{
		ProgressToken: protocol.ProgressToken(token),
		Progress:      progress,
		Total:         total,
		Message:       message,
	})
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, internalerrors.New("peer", "marshalParams", internalerrors.ErrInternal, err)
	}
	return raw, nil
}

func unmarshalParams(raw json.RawMessage, v any) error {
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return internalerrors.New("peer", "unmarshalParams", internalerrors.ErrBadRequest, fmt.Errorf("%w: %v", protocol.ErrInvalidParams, err))
	}
	return nil
}
