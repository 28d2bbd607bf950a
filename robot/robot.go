// Package robot wires the drivetrain, the arm, the operator controller and the driving behaviors
// into one robot.
package robot

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/fieldnav/components/arm"
	"go.viam.com/fieldnav/components/base"
	"go.viam.com/fieldnav/components/base/kinematicbase"
	"go.viam.com/fieldnav/config"
	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/input"
	"go.viam.com/fieldnav/logging"
	"go.viam.com/fieldnav/motionplan"
	"go.viam.com/fieldnav/operation"
	"go.viam.com/fieldnav/services/baseremotecontrol"
	"go.viam.com/fieldnav/services/navigation"
	"go.viam.com/fieldnav/spatialmath"
)

// Deps are the hardware the robot is built from.
type Deps struct {
	Base      base.Base
	Localizer base.Localizer
	Arm       arm.Arm
	// Controller may be nil, in which case the operator cannot interrupt behaviors.
	Controller input.Controller
	Clock      clock.Clock
}

// Robot owns every component and behavior. It is built once at startup.
type Robot struct {
	Config *config.Config
	Logger logging.Logger
	Deps   Deps

	Drivetrain *operation.SingleOperationManager
	Scheduler  *Scheduler

	LeaveCommunity *navigation.LeaveCommunity
	GotoNode       *navigation.GotoNode
	PlaceGamepiece *navigation.PlaceGamepiece
	// RemoteControl is nil when the robot has no controller.
	RemoteControl *baseremotecontrol.RemoteControl
}

// New builds a robot from cfg. An invalid config is an error.
func New(cfg *config.Config, deps Deps, logger logging.Logger) (*Robot, error) {
	if err := cfg.Validate("robot"); err != nil {
		return nil, err
	}
	if deps.Base == nil || deps.Localizer == nil || deps.Arm == nil {
		return nil, errors.New("robot requires a base, a localizer and an arm")
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	logger.SetLevel(cfg.Level())
	alliance := cfg.AllianceValue()

	follower, err := kinematicbase.NewFollower(deps.Base, deps.Clock, cfg.FollowerOptions(), logger.Sublogger("follower"))
	if err != nil {
		return nil, err
	}
	profiler, err := motionplan.NewSplineProfiler(cfg.Trajectory.MaxVelocityMPS, cfg.Trajectory.MaxAccelerationMPS)
	if err != nil {
		return nil, err
	}
	scheduler, err := NewScheduler(deps.Clock, cfg.LoopPeriod(), logger.Sublogger("scheduler"))
	if err != nil {
		return nil, err
	}

	r := &Robot{
		Config:     cfg,
		Logger:     logger,
		Deps:       deps,
		Drivetrain: &operation.SingleOperationManager{},
		Scheduler:  scheduler,
	}
	navDeps := navigation.Deps{
		Base:         deps.Base,
		Localizer:    deps.Localizer,
		Follower:     follower,
		Profiler:     profiler,
		Drivetrain:   r.Drivetrain,
		Controller:   deps.Controller,
		IdleDeadband: cfg.Input.IdleDeadband,
		Alliance:     alliance,
		Clock:        deps.Clock,
		Logger:       logger.Sublogger("navigation"),
	}

	if r.LeaveCommunity, err = navigation.NewLeaveCommunity(navigation.ExitTop, navDeps); err != nil {
		return nil, err
	}
	selection, err := field.NewNodeSelection(field.Bottom, field.Bottom, field.GamepieceForColumn(field.Bottom))
	if err != nil {
		return nil, err
	}
	if r.GotoNode, err = navigation.NewGotoNode(selection, navDeps); err != nil {
		return nil, err
	}
	r.PlaceGamepiece, err = navigation.NewPlaceGamepiece(
		deps.Arm,
		cfg.Arm,
		deps.Localizer,
		alliance,
		func() field.Gamepiece { return r.GotoNode.Selection().Gamepiece },
		logger.Sublogger("arm"),
	)
	if err != nil {
		return nil, err
	}
	if deps.Controller != nil {
		r.RemoteControl, err = baseremotecontrol.New(
			deps.Base,
			deps.Controller,
			r.Drivetrain,
			alliance,
			cfg.Input.Drive,
			logger.Sublogger("teleop"),
		)
		if err != nil {
			return nil, err
		}
	}
	r.GotoNode.Then(func(ctx context.Context, final spatialmath.Pose) {
		if err := r.Scheduler.Schedule(ctx, r.PlaceGamepiece); err != nil {
			r.Logger.Warnw("cannot place game piece", "pose", final.String(), "error", err)
		}
	})
	return r, nil
}

// SelectNode chooses the node GotoNode drives to. The column decides the game piece. A running
// GotoNode replans toward the new node.
func (r *Robot) SelectNode(row, column field.GridPosition) error {
	selection, err := field.NewNodeSelection(row, column, field.GamepieceForColumn(column))
	if err != nil {
		return err
	}
	r.GotoNode.SetSelection(selection)
	return nil
}

// StartTeleop schedules the remote control so the operator can drive whenever no other behavior
// owns the drivetrain.
func (r *Robot) StartTeleop(ctx context.Context) error {
	if r.RemoteControl == nil {
		return errors.New("cannot drive without a controller")
	}
	return r.Scheduler.Schedule(ctx, r.RemoteControl)
}

type closer interface {
	Close(ctx context.Context) error
}

// Close stops the scheduler, interrupts every behavior and closes the base if it can be closed.
func (r *Robot) Close(ctx context.Context) error {
	r.Scheduler.Stop()
	err := multierr.Combine(r.Scheduler.CancelAll(ctx), r.Deps.Base.Stop(ctx, nil))
	if c, ok := r.Deps.Base.(closer); ok {
		err = multierr.Combine(err, c.Close(ctx))
	}
	return err
}
