// Package payload implements C8: the payload registry mediating
// between forkchoice_updated (which starts a build) and get_payload
// (which waits for it to finish), including broadcast to concurrent
// waiters on the same payload id — grounded on the op-program L2
// engine API's payload-by-id bookkeeping pattern from other_examples/.
package payload

import (
	"context"
	"errors"
	"sync"

	"github.com/moved-network/moved/internal/types"
)

var ErrUnknownPayload = errors.New("payload: unknown payload id")

type entry struct {
	done   chan struct{}
	block  *types.ExtendedBlock
	err    error
	closed bool
}

// Registry is C8.
type Registry struct {
	mu      sync.Mutex
	entries map[types.PayloadID]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[types.PayloadID]*entry)}
}

// StartID registers that a build for id is in flight. Safe to call
// more than once for the same id (idempotent), matching forkchoice
// retries from a driver that didn't see the first ack.
func (r *Registry) StartID(id types.PayloadID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return
	}
	r.entries[id] = &entry{done: make(chan struct{})}
}

// FinishID completes a build, recording its result and waking every
// waiter blocked in GetDelayed for this id.
func (r *Registry) FinishID(id types.PayloadID, block *types.ExtendedBlock, buildErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		e = &entry{done: make(chan struct{})}
		r.entries[id] = e
	}
	if e.closed {
		return
	}
	e.block, e.err, e.closed = block, buildErr, true
	close(e.done)
}

// GetDelayed blocks until id's build finishes or ctx is cancelled.
func (r *Registry) GetDelayed(ctx context.Context, id types.PayloadID) (*types.ExtendedBlock, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrUnknownPayload
	}
	r.mu.Unlock()

	select {
	case <-e.done:
		return e.block, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryGet reports a payload's status without blocking: found is false
// for an unknown id; when found, done reports whether the build has
// finished (block/err are only meaningful once done).
func (r *Registry) TryGet(id types.PayloadID) (block *types.ExtendedBlock, done, found bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false, false, nil
	}
	if !e.closed {
		return nil, false, true, nil
	}
	return e.block, true, true, e.err
}

// Evict removes a completed payload's bookkeeping once it has been
// delivered, bounding registry memory growth.
func (r *Registry) Evict(id types.PayloadID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}
