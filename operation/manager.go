package operation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.viam.com/utils"
)

// SingleOperationManager ensures only 1 operation owns a resource at a time.
// Starting a new operation cancels the previous one. An operation can be nested, so a context
// that already carries the current operation reuses it instead of preempting itself.
type SingleOperationManager struct {
	mu        sync.Mutex
	currentOp *Operation
}

// New creates a new operation named by method, cancelling the previous one, and returns it with a
// function to call when done.
func (sm *SingleOperationManager) New(ctx context.Context, method string) (*Operation, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	// handle nested ops
	if mine := Get(ctx); mine != nil && mine == sm.currentOp && mine.Valid() {
		return mine, func() {}
	}

	sm.cancelInLock()

	op := &Operation{
		ID:      uuid.New(),
		Method:  method,
		Started: time.Now(),
	}
	op.ctx, op.cancel = context.WithCancel(context.WithValue(ctx, opKey, op))
	sm.currentOp = op

	return op, func() {
		op.cancel()
		sm.mu.Lock()
		if op == sm.currentOp {
			sm.currentOp = nil
		}
		sm.mu.Unlock()
	}
}

// Current returns the operation that owns the resource, or nil.
func (sm *SingleOperationManager) Current() *Operation {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.currentOp
}

// Owns returns whether op is the current owner.
func (sm *SingleOperationManager) Owns(op *Operation) bool {
	if op == nil {
		return false
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.currentOp == op && op.Valid()
}

// CancelRunning cancels the current operation, if any.
func (sm *SingleOperationManager) CancelRunning() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.cancelInLock()
}

// OpRunning returns if there is a current operation.
func (sm *SingleOperationManager) OpRunning() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.currentOp != nil
}

// NewTimedWaitOp returns true if it finished, false if cancelled.
// If there are other operations pending, this will cancel them.
func (sm *SingleOperationManager) NewTimedWaitOp(ctx context.Context, method string, dur time.Duration) bool {
	op, finish := sm.New(ctx, method)
	defer finish()

	return utils.SelectContextOrWait(op.Context(), dur)
}

func (sm *SingleOperationManager) cancelInLock() {
	if sm.currentOp == nil {
		return
	}
	sm.currentOp.cancel()
	sm.currentOp = nil
}
