// Package kinematicbase wraps a base with what it needs to follow trajectories: a localizer, a
// clock and feedback controllers.
package kinematicbase

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/fieldnav/components/base"
	"go.viam.com/fieldnav/control"
	"go.viam.com/fieldnav/logging"
	"go.viam.com/fieldnav/motionplan"
	"go.viam.com/fieldnav/spatialmath"
)

// Options configure how a trajectory is tracked.
type Options struct {
	Translation control.PIDConfig
	Rotation    control.PIDConfig
	// PositionTolerance is how close to the final pose, in meters, counts as arrived.
	PositionTolerance float64
	// HeadingTolerance is how close to the final heading counts as arrived.
	HeadingTolerance s1.Angle
	// SettleTime is how long past the trajectory duration the follower keeps correcting before it
	// gives up on the tolerances and finishes anyway.
	SettleTime time.Duration
}

// NewDefaultOptions returns the tracking options used when none are configured.
func NewDefaultOptions() Options {
	return Options{
		Translation:       control.PIDConfig{Kp: 4},
		Rotation:          control.PIDConfig{Kp: 4},
		PositionTolerance: 0.05,
		HeadingTolerance:  3 * s1.Degree,
		SettleTime:        time.Second,
	}
}

// Follower drives a base along trajectories.
type Follower struct {
	base   base.Base
	clock  clock.Clock
	logger logging.Logger
	opts   Options
}

// NewFollower returns a follower that commands b and measures time with clk.
func NewFollower(b base.Base, clk clock.Clock, opts Options, logger logging.Logger) (*Follower, error) {
	if _, err := control.NewPID(opts.Translation); err != nil {
		return nil, errors.Wrap(err, "translation controller")
	}
	if _, err := control.NewPID(opts.Rotation); err != nil {
		return nil, errors.Wrap(err, "rotation controller")
	}
	if opts.PositionTolerance <= 0 || opts.HeadingTolerance <= 0 {
		return nil, errors.New("tracking tolerances must be positive")
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Follower{base: b, clock: clk, logger: logger, opts: opts}, nil
}

// WithBase returns a follower that shares f's configuration but commands b instead.
func (f *Follower) WithBase(b base.Base) *Follower {
	out := *f
	out.base = b
	return &out
}

// DriveAlongTrajectory starts following traj from now. onPoseReached, if set, is called once with
// the measured pose when the trajectory finishes.
func (f *Follower) DriveAlongTrajectory(traj *motionplan.Trajectory, onPoseReached func(spatialmath.Pose)) *Handle {
	// options were validated by NewFollower
	xPID, _ := control.NewPID(f.opts.Translation)
	yPID, _ := control.NewPID(f.opts.Translation)
	thetaPID, _ := control.NewPID(f.opts.Rotation)
	now := f.clock.Now()
	return &Handle{
		f:             f,
		traj:          traj,
		start:         now,
		lastTick:      now,
		xPID:          xPID,
		yPID:          yPID,
		thetaPID:      thetaPID,
		onPoseReached: onPoseReached,
		desired:       traj.Sample(0),
	}
}

// Handle is one in-flight trajectory.
type Handle struct {
	f             *Follower
	traj          *motionplan.Trajectory
	start         time.Time
	onPoseReached func(spatialmath.Pose)

	mu                   sync.Mutex
	lastTick             time.Time
	xPID, yPID, thetaPID *control.PID
	desired              motionplan.State
	finished, cancelled  bool
}

// Trajectory returns the trajectory being followed.
func (h *Handle) Trajectory() *motionplan.Trajectory {
	return h.traj
}

// Desired returns the state the last tick tracked.
func (h *Handle) Desired() motionplan.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.desired
}

// Elapsed returns how long the trajectory has been followed.
func (h *Handle) Elapsed() time.Duration {
	return h.f.clock.Since(h.start)
}

// Tick advances the follower one step given the measured pose.
func (h *Handle) Tick(ctx context.Context, measured spatialmath.Pose) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished || h.cancelled {
		return nil
	}

	now := h.f.clock.Now()
	elapsed := now.Sub(h.start)
	dt := now.Sub(h.lastTick)
	h.lastTick = now

	desired := h.traj.Sample(elapsed)
	h.desired = desired

	if elapsed >= h.traj.Duration() {
		end := h.traj.End()
		arrived := measured.DistanceTo(end) <= h.f.opts.PositionTolerance &&
			spatialmath.AngleDiff(measured.Theta, end.Theta).Abs() <= h.f.opts.HeadingTolerance
		if arrived || elapsed >= h.traj.Duration()+h.f.opts.SettleTime {
			h.finished = true
			h.f.logger.Debugw("trajectory finished", "pose", measured.String(), "arrived", arrived, "elapsed", elapsed)
			err := h.f.base.Stop(ctx, nil)
			if h.onPoseReached != nil {
				h.onPoseReached(measured)
			}
			return err
		}
	}

	linear := r2.Point{
		X: desired.Velocity.X + h.xPID.Next(desired.Pose.X(), measured.X(), dt),
		Y: desired.Velocity.Y + h.yPID.Next(desired.Pose.Y(), measured.Y(), dt),
	}
	angular := desired.AngularVelocity +
		h.thetaPID.NextError(spatialmath.AngleDiff(measured.Theta, desired.Pose.Theta).Radians(), dt)

	if err := h.f.base.SetVelocity(ctx, linear, angular, nil); err != nil {
		return multierr.Combine(err, h.f.base.Stop(ctx, nil))
	}
	return nil
}

// IsFinished returns whether the trajectory has been completed.
func (h *Handle) IsFinished() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.finished
}

// Cancel stops following. The base is stopped; onPoseReached is never called.
func (h *Handle) Cancel(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished || h.cancelled {
		return nil
	}
	h.cancelled = true
	return h.f.base.Stop(ctx, nil)
}
