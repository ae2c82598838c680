// ABOUTME: Correlates outstanding request ids with single-use result slots
// ABOUTME: All pending-map mutation is serialized; duplicate resolutions are no-ops

package router

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	apperrors "github.com/harper/agentwire/internal/errors"
)

// Result fulfills a pending slot: a raw result payload or a terminal error,
// never both.
type Result struct {
	Payload json.RawMessage
	Err     error
}

// Router hands out request ids and tracks the slot awaiting each response.
// It lives exactly as long as one connection; teardown calls FailAll and the
// next connection gets a fresh Router.
type Router struct {
	nextID atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan Result
	closed  bool
}

func New() *Router {
	return &Router{pending: make(map[int64]chan Result)}
}

// NextID returns the next request id. Ids start at 1 and strictly increase
// for the lifetime of the router.
func (r *Router) NextID() int64 {
	return r.nextID.Add(1)
}

// Register creates the pending slot for id. After FailAll it refuses, so a
// racing sender cannot park a request nobody will ever resolve.
func (r *Router) Register(id int64) (<-chan Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, apperrors.ErrNotConnected
	}
	slot := make(chan Result, 1)
	r.pending[id] = slot
	return slot, nil
}

// Resolve fulfills and removes the slot for id. Unknown ids (already
// resolved, timed out, or never registered) are silently ignored; late and
// duplicate responses must not crash the engine.
func (r *Router) Resolve(id int64, res Result) {
	r.mu.Lock()
	slot, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if ok {
		// Removed under the lock, so this goroutine is the only sender and
		// the buffered slot can never block.
		slot <- res
	}
}

// FailAll drains every pending slot with err and refuses new registrations.
func (r *Router) FailAll(err error) {
	r.mu.Lock()
	drained := r.pending
	r.pending = make(map[int64]chan Result)
	r.closed = true
	r.mu.Unlock()

	for _, slot := range drained {
		slot <- Result{Err: err}
	}
}

// Pending reports how many requests are awaiting responses.
func (r *Router) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
