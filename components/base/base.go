// Package base defines the drivetrain the robot moves with.
package base

import (
	"context"

	"github.com/golang/geo/r2"

	"go.viam.com/fieldnav/operation"
	"go.viam.com/fieldnav/spatialmath"
)

// A Base is a holonomic drivetrain.
type Base interface {
	// SetVelocity drives with a field relative linear velocity in m/s and an angular velocity in
	// rad/s, counterclockwise positive. The velocity holds until the next command.
	SetVelocity(ctx context.Context, linear r2.Point, angular float64, extra map[string]interface{}) error

	// Stop stops the base. It is assumed the base stops immediately.
	Stop(ctx context.Context, extra map[string]interface{}) error

	// IsMoving returns whether the last command left the base moving.
	IsMoving(ctx context.Context) (bool, error)
}

// A Localizer reports where the robot is on the field.
type Localizer interface {
	CurrentPosition(ctx context.Context) (spatialmath.Pose, error)
}

type ownedBase struct {
	Base
	op *operation.Operation
}

// WithOperation returns a view of b that only forwards motion commands while op still owns the
// drivetrain. Commands issued after ownership is lost are dropped without error so that a
// preempted behavior cannot fight the new owner.
func WithOperation(b Base, op *operation.Operation) Base {
	return &ownedBase{Base: b, op: op}
}

func (ob *ownedBase) SetVelocity(ctx context.Context, linear r2.Point, angular float64, extra map[string]interface{}) error {
	if !ob.op.Valid() {
		return nil
	}
	return ob.Base.SetVelocity(ctx, linear, angular, extra)
}

func (ob *ownedBase) Stop(ctx context.Context, extra map[string]interface{}) error {
	if !ob.op.Valid() {
		return nil
	}
	return ob.Base.Stop(ctx, extra)
}
