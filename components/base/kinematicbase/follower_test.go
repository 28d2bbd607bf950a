package kinematicbase

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/fieldnav/components/base/fake"
	"go.viam.com/fieldnav/control"
	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/logging"
	"go.viam.com/fieldnav/motionplan"
	"go.viam.com/fieldnav/spatialmath"
)

const tickPeriod = 20 * time.Millisecond

func newTestTrajectory(t *testing.T, start spatialmath.Pose, targets ...spatialmath.Pose) *motionplan.Trajectory {
	t.Helper()
	profiler, err := motionplan.NewSplineProfiler(2, 2)
	test.That(t, err, test.ShouldBeNil)
	b := motionplan.NewBuilder(field.Blue, field.Blue, profiler)
	for _, target := range targets {
		b.Add(target)
	}
	return b.Generate(start)
}

func TestNewFollower(t *testing.T) {
	logger := logging.NewTestLogger(t)
	fb := fake.NewBase(spatialmath.NewZeroPose(), logger)

	_, err := NewFollower(fb, nil, NewDefaultOptions(), logger)
	test.That(t, err, test.ShouldBeNil)

	opts := NewDefaultOptions()
	opts.Translation = control.PIDConfig{}
	_, err = NewFollower(fb, nil, opts, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "translation")

	opts = NewDefaultOptions()
	opts.PositionTolerance = 0
	_, err = NewFollower(fb, nil, opts, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDriveAlongTrajectory(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	start := spatialmath.NewPoseFromDegrees(0, 0, 0)
	target := spatialmath.NewPoseFromDegrees(2, 1, 90)

	fb := fake.NewBase(start, logger)
	clk := clock.NewMock()
	f, err := NewFollower(fb, clk, NewDefaultOptions(), logger)
	test.That(t, err, test.ShouldBeNil)

	traj := newTestTrajectory(t, start, target)
	var reached []spatialmath.Pose
	h := f.DriveAlongTrajectory(traj, func(p spatialmath.Pose) { reached = append(reached, p) })
	test.That(t, h.Trajectory(), test.ShouldEqual, traj)

	deadline := traj.Duration() + 2*time.Second
	for h.Elapsed() < deadline && !h.IsFinished() {
		test.That(t, h.Tick(ctx, fb.Pose()), test.ShouldBeNil)
		fb.Step(tickPeriod)
		clk.Add(tickPeriod)
	}

	test.That(t, h.IsFinished(), test.ShouldBeTrue)
	test.That(t, len(reached), test.ShouldEqual, 1)
	test.That(t, reached[0].DistanceTo(target), test.ShouldBeLessThan, 0.05)
	test.That(t, fb.StopCount, test.ShouldEqual, 1)
	moving, err := fb.IsMoving(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moving, test.ShouldBeFalse)

	// finished handles ignore further ticks and cancels
	test.That(t, h.Tick(ctx, fb.Pose()), test.ShouldBeNil)
	test.That(t, h.Cancel(ctx), test.ShouldBeNil)
	test.That(t, len(reached), test.ShouldEqual, 1)
	test.That(t, fb.StopCount, test.ShouldEqual, 1)
}

func TestDriveAlongTrajectorySettles(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	start := spatialmath.NewPoseFromDegrees(0, 0, 0)

	// the base never moves so the follower has to give up after the settle time
	fb := fake.NewBase(start, logger)
	clk := clock.NewMock()
	f, err := NewFollower(fb, clk, NewDefaultOptions(), logger)
	test.That(t, err, test.ShouldBeNil)

	traj := newTestTrajectory(t, start, spatialmath.NewPoseFromDegrees(1, 0, 0))
	h := f.DriveAlongTrajectory(traj, nil)
	for !h.IsFinished() {
		test.That(t, h.Tick(ctx, start), test.ShouldBeNil)
		clk.Add(tickPeriod)
		test.That(t, h.Elapsed(), test.ShouldBeLessThanOrEqualTo, traj.Duration()+time.Second+2*tickPeriod)
	}
	test.That(t, h.Elapsed(), test.ShouldBeGreaterThanOrEqualTo, traj.Duration()+time.Second)
}

func TestDriveAlongEmptyTrajectory(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	start := spatialmath.NewPoseFromDegrees(3, 3, 45)
	fb := fake.NewBase(start, logger)
	f, err := NewFollower(fb, clock.NewMock(), NewDefaultOptions(), logger)
	test.That(t, err, test.ShouldBeNil)

	called := 0
	h := f.DriveAlongTrajectory(newTestTrajectory(t, start), func(spatialmath.Pose) { called++ })
	test.That(t, h.Tick(ctx, start), test.ShouldBeNil)
	test.That(t, h.IsFinished(), test.ShouldBeTrue)
	test.That(t, called, test.ShouldEqual, 1)
	test.That(t, fb.SetVelocityCount, test.ShouldEqual, 0)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	start := spatialmath.NewZeroPose()
	fb := fake.NewBase(start, logger)
	clk := clock.NewMock()
	f, err := NewFollower(fb, clk, NewDefaultOptions(), logger)
	test.That(t, err, test.ShouldBeNil)

	called := false
	h := f.DriveAlongTrajectory(newTestTrajectory(t, start, spatialmath.NewPoseFromDegrees(3, 0, 0)), func(spatialmath.Pose) {
		called = true
	})
	clk.Add(tickPeriod)
	test.That(t, h.Tick(ctx, start), test.ShouldBeNil)
	test.That(t, fb.SetVelocityCount, test.ShouldEqual, 1)
	test.That(t, h.Desired().Time, test.ShouldEqual, tickPeriod)

	test.That(t, h.Cancel(ctx), test.ShouldBeNil)
	test.That(t, fb.StopCount, test.ShouldEqual, 1)

	clk.Add(tickPeriod)
	test.That(t, h.Tick(ctx, start), test.ShouldBeNil)
	test.That(t, fb.SetVelocityCount, test.ShouldEqual, 1)
	test.That(t, h.IsFinished(), test.ShouldBeFalse)
	test.That(t, called, test.ShouldBeFalse)
}
