package peer

import (
	"context"
	"fmt"
	"sync"
)

// inflight tracks cancel functions for requests this Peer is currently
// handling (as opposed to registry.Registry, which tracks requests this
// Peer issued and is awaiting a response for). A notifications/cancelled
// naming one of these ids cancels the handler's context cooperatively; the
// handler is responsible for observing ctx.Done() and returning promptly.
type inflight struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newInflight() *inflight {
	return &inflight{cancels: make(map[string]context.CancelFunc)}
}

// track registers id's cancel function and returns a function to remove it
// once the handler returns, whether normally or via cancellation.
func (f *inflight) track(id any, cancel context.CancelFunc) (remove func()) {
	key := fmt.Sprintf("%v", id)

	f.mu.Lock()
	f.cancels[key] = cancel
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.cancels, key)
		f.mu.Unlock()
	}
}

// cancel invokes the cancel function registered for id, if any. It reports
// whether a matching in-flight request was found.
func (f *inflight) cancel(id any) bool {
	key := fmt.Sprintf("%v", id)

	f.mu.Lock()
	cancel, ok := f.cancels[key]
	f.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}
