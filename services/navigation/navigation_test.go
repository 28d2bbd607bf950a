package navigation

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/fieldnav/components/base/fake"
	"go.viam.com/fieldnav/components/base/kinematicbase"
	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/input"
	inputfake "go.viam.com/fieldnav/input/fake"
	"go.viam.com/fieldnav/logging"
	"go.viam.com/fieldnav/motionplan"
	"go.viam.com/fieldnav/operation"
	"go.viam.com/fieldnav/spatialmath"
)

const tickPeriod = 20 * time.Millisecond

type harness struct {
	base       *fake.Base
	clk        *clock.Mock
	controller *inputfake.Controller
	drivetrain *operation.SingleOperationManager
	deps       Deps
}

func newHarness(t *testing.T, start spatialmath.Pose, alliance field.Alliance) *harness {
	t.Helper()
	logger := logging.NewTestLogger(t)
	h := &harness{
		base:       fake.NewBase(start, logger),
		clk:        clock.NewMock(),
		controller: inputfake.NewController(),
		drivetrain: &operation.SingleOperationManager{},
	}
	follower, err := kinematicbase.NewFollower(h.base, h.clk, kinematicbase.NewDefaultOptions(), logger)
	test.That(t, err, test.ShouldBeNil)
	profiler, err := motionplan.NewSplineProfiler(3, 2)
	test.That(t, err, test.ShouldBeNil)
	h.deps = Deps{
		Base:       h.base,
		Localizer:  h.base,
		Follower:   follower,
		Profiler:   profiler,
		Drivetrain: h.drivetrain,
		Controller: h.controller,
		Alliance:   alliance,
		Clock:      h.clk,
		Logger:     logger,
	}
	return h
}

// step ticks b once and lets the simulation run for one period.
func (h *harness) step(t *testing.T, b Behavior) {
	t.Helper()
	test.That(t, b.Tick(context.Background()), test.ShouldBeNil)
	h.base.Step(tickPeriod)
	h.clk.Add(tickPeriod)
}

// run ticks b until it is done or maxTicks have passed.
func (h *harness) run(t *testing.T, b Behavior, maxTicks int) int {
	t.Helper()
	ticks := 0
	for ; ticks < maxTicks && !b.IsDone(); ticks++ {
		h.step(t, b)
	}
	return ticks
}

func TestDepsValidate(t *testing.T) {
	h := newHarness(t, spatialmath.NewZeroPose(), field.Blue)
	test.That(t, h.deps.Validate(), test.ShouldBeNil)

	deps := h.deps
	deps.Follower = nil
	_, err := NewLeaveCommunity(ExitTop, deps)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "follower")

	deps = h.deps
	deps.Drivetrain = nil
	_, err = NewPathFollower("x", func(*motionplan.Builder, field.Zone) {}, deps)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewPathFollower("x", nil, h.deps)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestStateString(t *testing.T) {
	test.That(t, StateIdle.String(), test.ShouldEqual, "IDLE")
	test.That(t, StateRunning.String(), test.ShouldEqual, "RUNNING")
	test.That(t, StateCompleted.String(), test.ShouldEqual, "COMPLETED")
	test.That(t, StateCancelled.String(), test.ShouldEqual, "CANCELLED")
	test.That(t, State(9).String(), test.ShouldEqual, "UNKNOWN")
}

func TestPathFollowerLifecycle(t *testing.T) {
	ctx := context.Background()
	start := spatialmath.NewPoseFromDegrees(6, 4, 0)
	target := spatialmath.NewPoseFromDegrees(8, 5, 90)
	h := newHarness(t, start, field.Blue)

	var zones []field.Zone
	pf, err := NewPathFollower("drive", func(b *motionplan.Builder, zone field.Zone) {
		zones = append(zones, zone)
		b.Add(target)
	}, h.deps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pf.Name(), test.ShouldEqual, "drive")
	test.That(t, pf.State(), test.ShouldEqual, StateIdle)
	test.That(t, pf.Trajectory(), test.ShouldBeNil)

	// ticking before start does nothing
	test.That(t, pf.Tick(ctx), test.ShouldBeNil)
	test.That(t, h.base.SetVelocityCount, test.ShouldEqual, 0)

	var finals []spatialmath.Pose
	pf.Then(func(_ context.Context, final spatialmath.Pose) {
		// the behavior is already completed when its continuation runs
		test.That(t, pf.State(), test.ShouldEqual, StateCompleted)
		finals = append(finals, final)
	})

	test.That(t, pf.Start(ctx), test.ShouldBeNil)
	test.That(t, pf.State(), test.ShouldEqual, StateRunning)
	test.That(t, h.drivetrain.OpRunning(), test.ShouldBeTrue)
	test.That(t, zones, test.ShouldResemble, []field.Zone{field.ZoneOpenArea})
	test.That(t, pf.Trajectory().Start(), test.ShouldResemble, start)

	h.run(t, pf, 1000)
	test.That(t, pf.State(), test.ShouldEqual, StateCompleted)
	test.That(t, pf.IsDone(), test.ShouldBeTrue)
	test.That(t, h.base.Pose().DistanceTo(target), test.ShouldBeLessThan, 0.05)
	test.That(t, h.drivetrain.OpRunning(), test.ShouldBeFalse)
	test.That(t, len(finals), test.ShouldEqual, 1)

	moving, err := h.base.IsMoving(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moving, test.ShouldBeFalse)

	// the continuation runs exactly once
	for i := 0; i < 5; i++ {
		h.step(t, pf)
	}
	test.That(t, len(finals), test.ShouldEqual, 1)
	test.That(t, pf.Cancel(ctx), test.ShouldBeNil)
	test.That(t, pf.State(), test.ShouldEqual, StateCompleted)

	t.Run("restart after completion", func(t *testing.T) {
		test.That(t, pf.Start(ctx), test.ShouldBeNil)
		test.That(t, pf.State(), test.ShouldEqual, StateRunning)
		test.That(t, pf.Trajectory().Start().DistanceTo(target), test.ShouldBeLessThan, 0.05)
		h.run(t, pf, 1000)
		test.That(t, pf.State(), test.ShouldEqual, StateCompleted)
		test.That(t, len(finals), test.ShouldEqual, 2)
	})
}

func TestReplanStartsFromCurrentPose(t *testing.T) {
	p0 := spatialmath.NewPoseFromDegrees(6, 1, 180)
	h := newHarness(t, p0, field.Blue)

	first, err := field.NewNodeSelection(field.Bottom, field.Bottom, field.Cone)
	test.That(t, err, test.ShouldBeNil)
	second, err := field.NewNodeSelection(field.Top, field.Middle, field.Cube)
	test.That(t, err, test.ShouldBeNil)

	gn, err := NewGotoNode(first, h.deps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gn.Start(context.Background()), test.ShouldBeNil)
	firstTraj := gn.Trajectory()
	test.That(t, spatialmath.PoseAlmostEqual(firstTraj.End(), first.Target(), 1e-9), test.ShouldBeTrue)

	for i := 0; i < 25; i++ {
		h.step(t, gn)
	}
	p1 := h.base.Pose()
	test.That(t, p1.DistanceTo(p0), test.ShouldBeGreaterThan, 0.1)

	gn.SetSelection(second)
	test.That(t, gn.Selection(), test.ShouldResemble, second)
	// the trajectory is only rebuilt on the next tick, from the pose read then
	test.That(t, gn.Trajectory(), test.ShouldEqual, firstTraj)
	h.step(t, gn)

	replanned := gn.Trajectory()
	test.That(t, replanned, test.ShouldNotEqual, firstTraj)
	test.That(t, replanned.Start(), test.ShouldResemble, p1)
	test.That(t, replanned.Start(), test.ShouldNotResemble, p0)
	test.That(t, spatialmath.PoseAlmostEqual(replanned.End(), second.Target(), 1e-9), test.ShouldBeTrue)
	test.That(t, gn.State(), test.ShouldEqual, StateRunning)

	// setting the same selection does not replan
	gn.SetSelection(second)
	h.step(t, gn)
	test.That(t, gn.Trajectory(), test.ShouldEqual, replanned)

	h.run(t, gn, 1000)
	test.That(t, gn.State(), test.ShouldEqual, StateCompleted)
	test.That(t, h.base.Pose().DistanceTo(second.Target()), test.ShouldBeLessThan, 0.05)
}

func TestStartWhileRunningReplans(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, spatialmath.NewPoseFromDegrees(6, 2, 180), field.Blue)
	sel, err := field.NewNodeSelection(field.Middle, field.Middle, field.Cube)
	test.That(t, err, test.ShouldBeNil)
	gn, err := NewGotoNode(sel, h.deps)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, gn.Start(ctx), test.ShouldBeNil)
	op := h.drivetrain.Current()
	first := gn.Trajectory()
	for i := 0; i < 10; i++ {
		h.step(t, gn)
	}

	test.That(t, gn.Start(ctx), test.ShouldBeNil)
	test.That(t, gn.State(), test.ShouldEqual, StateRunning)
	// same ownership, no preemption of itself
	test.That(t, h.drivetrain.Current(), test.ShouldEqual, op)

	pose := h.base.Pose()
	h.step(t, gn)
	test.That(t, gn.Trajectory(), test.ShouldNotEqual, first)
	test.That(t, gn.Trajectory().Start(), test.ShouldResemble, pose)
}

func TestOwnershipOutlivesStartContext(t *testing.T) {
	h := newHarness(t, spatialmath.NewPoseFromDegrees(1.5, 2.5, 180), field.Blue)
	lc, err := NewLeaveCommunity(ExitTop, h.deps)
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	test.That(t, lc.Start(ctx), test.ShouldBeNil)
	cancel()

	commands := h.base.SetVelocityCount
	h.step(t, lc)
	test.That(t, lc.State(), test.ShouldEqual, StateRunning)
	test.That(t, h.drivetrain.OpRunning(), test.ShouldBeTrue)
	test.That(t, h.base.SetVelocityCount, test.ShouldBeGreaterThan, commands)

	h.run(t, lc, 2000)
	test.That(t, lc.State(), test.ShouldEqual, StateCompleted)
	test.That(t, h.drivetrain.OpRunning(), test.ShouldBeFalse)
}

func TestStartAfterPreemptionTakesDrivetrainBack(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, spatialmath.NewPoseFromDegrees(1.5, 2.5, 180), field.Blue)
	gn, err := NewGotoNode(mustSelection(t, field.Middle, field.Middle), h.deps)
	test.That(t, err, test.ShouldBeNil)
	lc, err := NewLeaveCommunity(ExitTop, h.deps)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, gn.Start(ctx), test.ShouldBeNil)
	h.step(t, gn)
	test.That(t, lc.Start(ctx), test.ShouldBeNil)
	test.That(t, h.drivetrain.Current().Method, test.ShouldEqual, "leave_community")

	first := gn.Trajectory()
	test.That(t, gn.Start(ctx), test.ShouldBeNil)
	test.That(t, h.drivetrain.Current().Method, test.ShouldEqual, "goto_node")

	pose := h.base.Pose()
	h.step(t, gn)
	test.That(t, gn.State(), test.ShouldEqual, StateRunning)
	test.That(t, gn.Trajectory(), test.ShouldNotEqual, first)
	test.That(t, gn.Trajectory().Start(), test.ShouldResemble, pose)

	// leave_community lost the drivetrain to the restarted behavior
	h.step(t, lc)
	test.That(t, lc.State(), test.ShouldEqual, StateCancelled)
	test.That(t, h.drivetrain.Current().Method, test.ShouldEqual, "goto_node")

	h.run(t, gn, 2000)
	test.That(t, gn.State(), test.ShouldEqual, StateCompleted)
}

func TestOperatorInputCancels(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, spatialmath.NewPoseFromDegrees(1.5, 2.5, 180), field.Blue)
	lc, err := NewLeaveCommunity(ExitTop, h.deps)
	test.That(t, err, test.ShouldBeNil)
	continued := false
	lc.Then(func(context.Context, spatialmath.Pose) { continued = true })

	test.That(t, lc.Start(ctx), test.ShouldBeNil)
	for i := 0; i < 20; i++ {
		h.step(t, lc)
	}
	moving, err := h.base.IsMoving(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moving, test.ShouldBeTrue)

	// below the idle deadband is not input
	h.controller.Set(input.AbsoluteY, 0.2)
	h.step(t, lc)
	test.That(t, lc.State(), test.ShouldEqual, StateRunning)

	h.controller.Set(input.AbsoluteRX, -0.8)
	commands := h.base.SetVelocityCount
	stops := h.base.StopCount
	test.That(t, lc.Tick(ctx), test.ShouldBeNil)

	test.That(t, lc.State(), test.ShouldEqual, StateCancelled)
	test.That(t, lc.IsDone(), test.ShouldBeTrue)
	test.That(t, h.base.SetVelocityCount, test.ShouldEqual, commands)
	test.That(t, h.base.StopCount, test.ShouldEqual, stops+1)
	moving, err = h.base.IsMoving(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, moving, test.ShouldBeFalse)
	test.That(t, h.drivetrain.OpRunning(), test.ShouldBeFalse)

	// no further trajectory ticks
	h.controller.Release()
	for i := 0; i < 5; i++ {
		h.step(t, lc)
	}
	test.That(t, h.base.SetVelocityCount, test.ShouldEqual, commands)
	test.That(t, continued, test.ShouldBeFalse)
}

func TestControllerErrorIsNotInput(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, spatialmath.NewPoseFromDegrees(1.5, 2.5, 180), field.Blue)
	lc, err := NewLeaveCommunity(ExitTop, h.deps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lc.Start(ctx), test.ShouldBeNil)

	h.controller.Fail.Store(true)
	h.step(t, lc)
	test.That(t, lc.State(), test.ShouldEqual, StateRunning)
}

func TestPreemptionCancelsWithoutCommanding(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, spatialmath.NewPoseFromDegrees(1.5, 2.5, 180), field.Blue)
	lc, err := NewLeaveCommunity(ExitTop, h.deps)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lc.Start(ctx), test.ShouldBeNil)
	for i := 0; i < 10; i++ {
		h.step(t, lc)
	}

	_, release := h.drivetrain.New(ctx, "teleop")
	defer release()

	commands := h.base.SetVelocityCount
	stops := h.base.StopCount
	test.That(t, lc.Tick(ctx), test.ShouldBeNil)
	test.That(t, lc.State(), test.ShouldEqual, StateCancelled)
	test.That(t, h.base.SetVelocityCount, test.ShouldEqual, commands)
	test.That(t, h.base.StopCount, test.ShouldEqual, stops)
	// the new owner keeps the drivetrain
	test.That(t, h.drivetrain.Current().Method, test.ShouldEqual, "teleop")
}

func TestExternalCancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, spatialmath.NewPoseFromDegrees(1.5, 2.5, 180), field.Blue)
	lc, err := NewLeaveCommunity(ExitBottom, h.deps)
	test.That(t, err, test.ShouldBeNil)

	// cancelling an idle behavior is a no-op
	test.That(t, lc.Cancel(ctx), test.ShouldBeNil)
	test.That(t, lc.State(), test.ShouldEqual, StateIdle)

	test.That(t, lc.Start(ctx), test.ShouldBeNil)
	h.step(t, lc)
	h.step(t, lc)
	test.That(t, lc.Cancel(ctx), test.ShouldBeNil)
	test.That(t, lc.State(), test.ShouldEqual, StateCancelled)
	test.That(t, h.base.StopCount, test.ShouldEqual, 1)
	test.That(t, h.drivetrain.OpRunning(), test.ShouldBeFalse)
}

func TestLocalizationFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, spatialmath.NewPoseFromDegrees(1.5, 2.5, 180), field.Blue)
	lc, err := NewLeaveCommunity(ExitTop, h.deps)
	test.That(t, err, test.ShouldBeNil)

	h.base.FailLocalization(context.DeadlineExceeded)
	err = lc.Start(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, lc.State(), test.ShouldEqual, StateIdle)
	test.That(t, h.drivetrain.OpRunning(), test.ShouldBeFalse)

	h.base.FailLocalization(nil)
	test.That(t, lc.Start(ctx), test.ShouldBeNil)
	h.step(t, lc)

	h.base.FailLocalization(context.DeadlineExceeded)
	stops := h.base.StopCount
	err = lc.Tick(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot locate robot")
	test.That(t, lc.State(), test.ShouldEqual, StateRunning)
	test.That(t, h.base.StopCount, test.ShouldEqual, stops+1)

	h.base.FailLocalization(nil)
	h.run(t, lc, 2000)
	test.That(t, lc.State(), test.ShouldEqual, StateCompleted)
}
