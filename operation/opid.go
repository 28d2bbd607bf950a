// Package operation manages which operation currently owns a shared resource such as the
// drivetrain.
package operation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type opKeyType string

const opKey = opKeyType("op")

// Operation is one claim on a resource. It stays valid until it is released or a newer operation
// takes the resource away.
type Operation struct {
	ID      uuid.UUID
	Method  string
	Started time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// Context returns a context that is cancelled when the operation loses ownership.
func (o *Operation) Context() context.Context {
	return o.ctx
}

// Done is closed when the operation loses ownership.
func (o *Operation) Done() <-chan struct{} {
	return o.ctx.Done()
}

// Valid returns whether the operation still owns the resource.
func (o *Operation) Valid() bool {
	return o.ctx.Err() == nil
}

// Cancel gives up ownership.
func (o *Operation) Cancel() {
	o.cancel()
}

func (o *Operation) String() string {
	return o.Method + "/" + o.ID.String()
}

// Get returns the operation carried by ctx. This can be nil.
func Get(ctx context.Context) *Operation {
	o := ctx.Value(opKey)
	if o == nil {
		return nil
	}
	return o.(*Operation)
}
