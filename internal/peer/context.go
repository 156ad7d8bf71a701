package peer

import "context"

// contextKey is a custom type for context keys to avoid collisions with
// keys set by other packages.
type contextKey string

const requestContextKey contextKey = "peer_request_context"

// RequestContext carries the per-inbound-request state a handler needs to
// talk back to the issuing peer: its progress token (if the caller opted
// in) and a reference to the Peer for emitting progress notifications.
type RequestContext struct {
	// RequestID is the JSON-RPC id of the request being handled.
	RequestID any

	// ProgressToken is set when the caller's params carried a non-empty
	// _meta.progressToken, opting the request into progress notifications.
	ProgressToken string

	// SessionID identifies the streamable-HTTP session this request
	// arrived on, if any. Peers driven by stdio, in-process, or websocket
	// transports leave this empty.
	SessionID string

	peer *Peer
}

// Peer returns the Peer handling this request, for issuing a server->client
// call (sampling, roots, elicitation) from within an inbound handler.
func (rc RequestContext) Peer() *Peer { return rc.peer }

// Progress emits a notifications/progress for this request. It is a no-op
// if the caller did not opt in with a progress token.
func (rc RequestContext) Progress(progress, total float64, message string) error {
	if rc.ProgressToken == "" || rc.peer == nil {
		return nil
	}
	return rc.peer.sendProgress(rc.ProgressToken, progress, total, message)
}

// contextWithRequestContext attaches a RequestContext to ctx.
func contextWithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// RequestContextFromContext extracts the RequestContext a handler is
// running under, if any.
func RequestContextFromContext(ctx context.Context) (RequestContext, bool) {
	if ctx == nil {
		return RequestContext{}, false
	}
	rc, ok := ctx.Value(requestContextKey).(RequestContext)
	return rc, ok
}
