package navigation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/fieldnav/components/base"
	"go.viam.com/fieldnav/components/base/kinematicbase"
	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/input"
	"go.viam.com/fieldnav/logging"
	"go.viam.com/fieldnav/motionplan"
	"go.viam.com/fieldnav/operation"
	"go.viam.com/fieldnav/spatialmath"
)

// PlanFunc adds the waypoints of one trajectory, written for the blue alliance, given the zone the
// robot starts in.
type PlanFunc func(b *motionplan.Builder, zone field.Zone)

// Continuation runs once when a behavior completes, with the pose it finished at.
type Continuation func(ctx context.Context, final spatialmath.Pose)

// session is one trajectory being followed.
type session struct {
	id              uuid.UUID
	trajectory      *motionplan.Trajectory
	handle          *kinematicbase.Handle
	startTime       time.Time
	lastDesiredPose spatialmath.Pose
}

// PathFollower plans a trajectory when started and tracks it every tick. It owns the drivetrain
// while running; losing ownership or seeing operator input cancels it.
type PathFollower struct {
	name   string
	deps   Deps
	plan   PlanFunc
	logger logging.Logger

	mu      sync.Mutex
	state   State
	then    Continuation
	op      *operation.Operation
	release func()
	drive   base.Base
	session *session
	replan  bool
}

// NewPathFollower returns an idle behavior that drives along the waypoints plan adds.
func NewPathFollower(name string, plan PlanFunc, deps Deps) (*PathFollower, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, errors.New("path follower requires a plan")
	}
	return &PathFollower{
		name:   name,
		deps:   deps.withDefaults(),
		plan:   plan,
		logger: deps.Logger.WithFields("behavior", name),
	}, nil
}

// Name returns the behavior name.
func (pf *PathFollower) Name() string {
	return pf.name
}

// Then sets the continuation run when the behavior completes.
func (pf *PathFollower) Then(next Continuation) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	pf.then = next
}

// State returns the lifecycle state.
func (pf *PathFollower) State() State {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.state
}

// IsDone returns whether the behavior completed or was cancelled.
func (pf *PathFollower) IsDone() bool {
	s := pf.State()
	return s == StateCompleted || s == StateCancelled
}

// Trajectory returns the trajectory of the current or last session, or nil before the first start.
func (pf *PathFollower) Trajectory() *motionplan.Trajectory {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.session == nil {
		return nil
	}
	return pf.session.trajectory
}

// LastDesiredPose returns the pose the follower tracked on the last tick.
func (pf *PathFollower) LastDesiredPose() spatialmath.Pose {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.session == nil {
		return spatialmath.Pose{}
	}
	return pf.session.lastDesiredPose
}

// RequestReplan makes the next tick rebuild the trajectory from wherever the robot is then. It
// does nothing unless the behavior is running.
func (pf *PathFollower) RequestReplan() {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.state == StateRunning {
		pf.replan = true
	}
}

// Start takes the drivetrain, plans from the current pose and starts following. Starting a running
// behavior replans it, taking the drivetrain back if another behavior preempted it.
func (pf *PathFollower) Start(ctx context.Context) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.state == StateRunning {
		if !pf.op.Valid() {
			// preempted since the last tick
			pf.acquire(ctx)
			pf.logger.Debugw("drivetrain taken back", "op", pf.op.String())
		}
		pf.replan = true
		return nil
	}

	pose, err := pf.deps.Localizer.CurrentPosition(ctx)
	if err != nil {
		return errors.Wrapf(err, "cannot start %s", pf.name)
	}

	pf.acquire(ctx)
	pf.replan = false
	pf.state = StateRunning
	pf.beginSession(pose)
	return nil
}

// acquire takes the drivetrain for this behavior. The operation outlives ctx: only completion,
// cancellation or another owner ends it.
func (pf *PathFollower) acquire(ctx context.Context) {
	if pf.release != nil {
		pf.release()
	}
	op, release := pf.deps.Drivetrain.New(context.WithoutCancel(ctx), pf.name)
	pf.op = op
	pf.release = release
	pf.drive = base.WithOperation(pf.deps.Base, op)
}

// Tick advances the behavior one control cycle. Operator input and lost ownership are checked
// before anything else is computed, and the pose is read once at the start of the tick.
func (pf *PathFollower) Tick(ctx context.Context) error {
	then, final, err := pf.tick(ctx)
	if then != nil {
		then(ctx, final)
	}
	return err
}

func (pf *PathFollower) tick(ctx context.Context) (Continuation, spatialmath.Pose, error) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.state != StateRunning {
		return nil, spatialmath.Pose{}, nil
	}

	if pf.operatorTookOver(ctx) {
		err := pf.session.handle.Cancel(ctx)
		pf.end(StateCancelled, "operator input")
		return nil, spatialmath.Pose{}, err
	}
	if !pf.op.Valid() {
		// the handle drives through the owned base, so cancelling it commands nothing
		err := pf.session.handle.Cancel(ctx)
		pf.end(StateCancelled, "drivetrain preempted")
		return nil, spatialmath.Pose{}, err
	}

	pose, err := pf.deps.Localizer.CurrentPosition(ctx)
	if err != nil {
		return nil, spatialmath.Pose{}, multierr.Combine(errors.Wrap(err, "cannot locate robot"), pf.drive.Stop(ctx, nil))
	}

	if pf.replan {
		pf.replan = false
		if err := pf.session.handle.Cancel(ctx); err != nil {
			pf.logger.Warnw("stopping before replan failed", "error", err)
		}
		pf.beginSession(pose)
	}

	err = pf.session.handle.Tick(ctx, pose)
	pf.session.lastDesiredPose = pf.session.handle.Desired().Pose
	if !pf.session.handle.IsFinished() {
		return nil, spatialmath.Pose{}, err
	}

	pf.end(StateCompleted, "trajectory finished")
	return pf.then, pose, err
}

// Cancel interrupts the behavior and stops the drivetrain if it still owns it.
func (pf *PathFollower) Cancel(ctx context.Context) error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pf.state != StateRunning {
		return nil
	}
	err := pf.session.handle.Cancel(ctx)
	pf.end(StateCancelled, "cancelled")
	return err
}

func (pf *PathFollower) operatorTookOver(ctx context.Context) bool {
	if pf.deps.Controller == nil {
		return false
	}
	has, err := input.HasInput(ctx, pf.deps.Controller, pf.deps.IdleDeadband)
	if err != nil {
		pf.logger.Warnw("cannot read operator input", "error", err)
		return false
	}
	return has
}

// beginSession plans from pose and starts following the result.
func (pf *PathFollower) beginSession(pose spatialmath.Pose) {
	zone := field.Classify(pose.Point, pf.deps.Alliance)
	b := motionplan.NewBuilder(field.Blue, pf.deps.Alliance, pf.deps.Profiler)
	pf.plan(b, zone)
	traj := b.Generate(pose)

	pf.session = &session{
		id:              uuid.New(),
		trajectory:      traj,
		handle:          pf.deps.Follower.WithBase(pf.drive).DriveAlongTrajectory(traj, nil),
		startTime:       pf.deps.Clock.Now(),
		lastDesiredPose: pose,
	}
	pf.logger.Infow("following trajectory",
		"session", pf.session.id,
		"zone", zone,
		"start", pose.String(),
		"end", traj.End().String(),
		"waypoints", b.Len(),
		"duration", traj.Duration(),
	)
}

// end leaves the running state and gives the drivetrain back.
func (pf *PathFollower) end(state State, reason string) {
	pf.state = state
	pf.replan = false
	if pf.release != nil {
		pf.release()
		pf.release = nil
	}
	pf.logger.Infow("behavior ended",
		"session", pf.session.id,
		"state", state,
		"reason", reason,
		"elapsed", pf.deps.Clock.Since(pf.session.startTime),
	)
}
