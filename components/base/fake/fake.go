// Package fake implements a fake base.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
	"github.com/pkg/errors"

	"go.viam.com/fieldnav/logging"
	"go.viam.com/fieldnav/spatialmath"
)

// Base is a simulated holonomic base. It holds the last commanded velocity and moves by it each
// time Step is called, so it is also its own Localizer.
type Base struct {
	mu       sync.Mutex
	logger   logging.Logger
	pose     spatialmath.Pose
	linear   r2.Point
	angular  float64
	slip     float64
	localErr error

	SetVelocityCount int
	StopCount        int
	CloseCount       int
}

// NewBase instantiates a new fake base at start.
func NewBase(start spatialmath.Pose, logger logging.Logger) *Base {
	return &Base{pose: start, logger: logger}
}

// SetSlip scales every commanded velocity by 1-slip when stepping, to simulate a drivetrain that
// undershoots.
func (b *Base) SetSlip(slip float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slip = slip
}

// FailLocalization makes CurrentPosition return err until called again with nil.
func (b *Base) FailLocalization(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.localErr = err
}

// SetPose teleports the base.
func (b *Base) SetPose(pose spatialmath.Pose) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pose = pose
}

// Pose returns the simulated pose.
func (b *Base) Pose() spatialmath.Pose {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pose
}

// Velocity returns the last commanded velocity.
func (b *Base) Velocity() (r2.Point, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.linear, b.angular
}

// Step advances the simulation by dt.
func (b *Base) Step(dt time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	scale := dt.Seconds() * (1 - b.slip)
	b.pose = spatialmath.NewPoseFromPoint(
		b.pose.Point.Add(b.linear.Mul(scale)),
		b.pose.Theta+s1.Angle(b.angular*scale),
	)
}

// SetVelocity records the velocity to move with.
func (b *Base) SetVelocity(ctx context.Context, linear r2.Point, angular float64, extra map[string]interface{}) error {
	if math.IsNaN(linear.X) || math.IsNaN(linear.Y) || math.IsNaN(angular) {
		return errors.New("velocity must be a number")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.linear = linear
	b.angular = angular
	b.SetVelocityCount++
	return nil
}

// Stop zeroes the velocity.
func (b *Base) Stop(ctx context.Context, extra map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.linear = r2.Point{}
	b.angular = 0
	b.StopCount++
	if b.logger != nil {
		b.logger.Debugw("base stopped", "pose", b.pose.String())
	}
	return nil
}

// IsMoving returns whether a non-zero velocity is commanded.
func (b *Base) IsMoving(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.linear.Norm() > 0 || b.angular != 0, nil
}

// CurrentPosition returns the simulated pose.
func (b *Base) CurrentPosition(ctx context.Context) (spatialmath.Pose, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.localErr != nil {
		return spatialmath.Pose{}, b.localErr
	}
	return b.pose, nil
}

// Close counts how often it is called.
func (b *Base) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CloseCount++
	return nil
}
