// Package registry tracks outbound requests awaiting a matching response.
//
// A peer that issues a request (client calling a server method, or a server
// calling back into the client for sampling/roots/elicitation) must
// correlate the eventual Response by its id. Pending holds one slot per
// in-flight id; Resolve or Cancel completes it exactly once.
package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	internalerrors "github.com/flowmesh-dev/mcp-peer/internal/errors"
	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
)

// ErrUnknownID indicates a Resolve or Cancel call named an id with no
// pending slot.
var ErrUnknownID = fmt.Errorf("no pending request for id")

// ErrAlreadyDrained indicates Register was called after Drain.
var ErrAlreadyDrained = fmt.Errorf("registry has been drained")

// pending is the completion slot for one outstanding request.
type pending struct {
	ch     chan *protocol.Response
	cancel context.CancelCauseFunc
}

// Registry is a thread-safe id -> completion-slot map. It also mints
// monotonically increasing request ids for the peer that owns it.
type Registry struct {
	mu      sync.Mutex
	slots   map[string]pending
	nextID  int64
	drained bool
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		slots: make(map[string]pending),
	}
}

// NextID mints the next request id for this peer, as a JSON-RPC integer. IDs
// are unique and monotonically increasing for the lifetime of the Registry,
// starting at 0 per spec.md §3.
func (r *Registry) NextID() any {
	return atomic.AddInt64(&r.nextID, 1) - 1
}

// Register opens a completion slot for id and returns a wait function that
// blocks until Resolve, Cancel, Drain, or the caller's own context ends the
// slot.
func (r *Registry) Register(ctx context.Context, id any) (wait func() (*protocol.Response, error), err error) {
	key := idKey(id)

	r.mu.Lock()
	if r.drained {
		r.mu.Unlock()
		return nil, internalerrors.New("registry", "Register", internalerrors.ErrInternal, ErrAlreadyDrained).
			WithContext("request_id", key)
	}
	if _, exists := r.slots[key]; exists {
		r.mu.Unlock()
		return nil, internalerrors.New("registry", "Register", internalerrors.ErrBadRequest, fmt.Errorf("duplicate request id")).
			WithContext("request_id", key)
	}

	slotCtx, cancel := context.WithCancelCause(ctx)
	slot := pending{ch: make(chan *protocol.Response, 1), cancel: cancel}
	r.slots[key] = slot
	r.mu.Unlock()

	wait = func() (*protocol.Response, error) {
		select {
		case resp := <-slot.ch:
			return resp, nil
		case <-slotCtx.Done():
			r.remove(key)
			if cause := context.Cause(slotCtx); cause != nil && cause != context.Canceled {
				return nil, cause
			}
			return nil, slotCtx.Err()
		}
	}
	return wait, nil
}

// Resolve completes the pending slot for id with resp. It returns
// ErrUnknownID if no slot is registered (e.g. the response arrived after the
// caller gave up, or named an id nobody ever registered).
func (r *Registry) Resolve(id any, resp *protocol.Response) error {
	key := idKey(id)

	r.mu.Lock()
	slot, exists := r.slots[key]
	if exists {
		delete(r.slots, key)
	}
	r.mu.Unlock()

	if !exists {
		return internalerrors.New("registry", "Resolve", internalerrors.ErrNotFound, ErrUnknownID).
			WithContext("request_id", key)
	}
	slot.ch <- resp
	return nil
}

// Cancel aborts the pending slot for id, causing its wait function to return
// reason as an error. The peer package does not call it: Peer.Cancel only
// sends notifications/cancelled, and an inbound notifications/cancelled
// cancels an inbound handler rather than an outbound slot.
func (r *Registry) Cancel(id any, reason error) error {
	key := idKey(id)

	r.mu.Lock()
	slot, exists := r.slots[key]
	r.mu.Unlock()

	if !exists {
		return internalerrors.New("registry", "Cancel", internalerrors.ErrNotFound, ErrUnknownID).
			WithContext("request_id", key)
	}
	slot.cancel(reason)
	return nil
}

// Drain cancels every pending slot, used when the peer's transport closes
// with requests still outstanding. After Drain, Register always fails.
func (r *Registry) Drain(reason error) {
	r.mu.Lock()
	r.drained = true
	slots := r.slots
	r.slots = make(map[string]pending)
	r.mu.Unlock()

	for _, slot := range slots {
		slot.cancel(reason)
	}
}

// Len reports the number of in-flight requests, primarily for tests and
// diagnostics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

func (r *Registry) remove(key string) {
	r.mu.Lock()
	delete(r.slots, key)
	r.mu.Unlock()
}

// idKey normalizes a JSON-RPC id (string, float64, or json.Number after
// decode) into a map key. MCP ids are always strings or integers in
// practice; numbers are formatted without a fractional part when they are
// whole.
func idKey(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case int64:
		return fmt.Sprintf("%d", v)
	case int:
		return fmt.Sprintf("%d", v)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
