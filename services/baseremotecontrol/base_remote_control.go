// Package baseremotecontrol drives the base from the operator gamepad. It is the default behavior
// of the robot: it only takes the drivetrain when nothing else owns it.
package baseremotecontrol

import (
	"context"
	"math"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/fieldnav/components/base"
	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/input"
	"go.viam.com/fieldnav/logging"
	"go.viam.com/fieldnav/operation"
	"go.viam.com/fieldnav/services/navigation"
)

// Name is the behavior name, also used as the drivetrain operation method.
const Name = "base_remote_control"

// Config describes how fast full stick deflection drives the base.
type Config struct {
	MaxSpeedMPS          float64 `json:"max_speed_mps"`
	MaxAngularDegsPerSec float64 `json:"max_angular_degs_per_sec"`
}

// RemoteControl maps the left stick to field relative translation and the right stick to rotation.
type RemoteControl struct {
	base       base.Base
	controller input.Controller
	drivetrain *operation.SingleOperationManager
	alliance   field.Alliance
	maxSpeed   float64
	maxAngular float64
	logger     logging.Logger

	mu      sync.Mutex
	state   navigation.State
	op      *operation.Operation
	release func()
	drive   base.Base
}

// New returns an idle remote control.
func New(
	b base.Base,
	controller input.Controller,
	drivetrain *operation.SingleOperationManager,
	alliance field.Alliance,
	conf Config,
	logger logging.Logger,
) (*RemoteControl, error) {
	if b == nil || controller == nil || drivetrain == nil {
		return nil, errors.New("remote control requires a base, a controller and a drivetrain")
	}
	if conf.MaxSpeedMPS <= 0 || conf.MaxAngularDegsPerSec <= 0 {
		return nil, errors.Errorf("remote control speeds must be positive, got %+v", conf)
	}
	return &RemoteControl{
		base:       b,
		controller: controller,
		drivetrain: drivetrain,
		alliance:   alliance,
		maxSpeed:   conf.MaxSpeedMPS,
		maxAngular: conf.MaxAngularDegsPerSec * math.Pi / 180,
		logger:     logger.WithFields("behavior", Name),
	}, nil
}

// Name returns the behavior name.
func (svc *RemoteControl) Name() string {
	return Name
}

// State returns where the remote control is in its lifecycle.
func (svc *RemoteControl) State() navigation.State {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.state
}

// IsDone returns true once the remote control is cancelled. It never completes on its own.
func (svc *RemoteControl) IsDone() bool {
	return svc.State() != navigation.StateRunning
}

// Driving returns whether the remote control currently owns the drivetrain.
func (svc *RemoteControl) Driving() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.drivetrain.Owns(svc.op)
}

// Start makes the remote control listen to the sticks. The drivetrain is taken on the first tick
// with input.
func (svc *RemoteControl) Start(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.state = navigation.StateRunning
	return nil
}

// Tick reads the sticks once and drives accordingly. Centered sticks stop the base and hand the
// drivetrain back.
func (svc *RemoteControl) Tick(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.state != navigation.StateRunning {
		return nil
	}

	axes, err := svc.controller.Axes(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot read operator input")
	}
	linear, angular := svc.velocities(axes)

	if svc.op != nil && !svc.op.Valid() {
		// another behavior took over
		svc.releaseInLock()
	}

	if linear.Norm() == 0 && angular == 0 {
		if svc.op == nil {
			return nil
		}
		err := svc.drive.Stop(ctx, nil)
		svc.releaseInLock()
		return err
	}

	if svc.op == nil {
		if svc.drivetrain.OpRunning() {
			return nil
		}
		svc.op, svc.release = svc.drivetrain.New(ctx, Name)
		svc.drive = base.WithOperation(svc.base, svc.op)
		svc.logger.Debugw("operator took the drivetrain", "op", svc.op.String())
	}
	return svc.drive.SetVelocity(ctx, linear, angular, nil)
}

// Cancel stops listening to the sticks, stopping the base if it was driving.
func (svc *RemoteControl) Cancel(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.state != navigation.StateRunning {
		return nil
	}
	svc.state = navigation.StateCancelled
	if svc.op == nil {
		return nil
	}
	err := svc.drive.Stop(ctx, nil)
	svc.releaseInLock()
	return err
}

// velocities returns the field relative command for axes. Pushing the left stick forward drives
// away from the alliance wall.
func (svc *RemoteControl) velocities(axes map[input.ControlCode]float64) (r2.Point, float64) {
	x := input.ApplyDeadband(axes[input.AbsoluteX], input.JoystickDeadband)
	y := input.ApplyDeadband(axes[input.AbsoluteY], input.JoystickDeadband)
	rx := input.ApplyDeadband(axes[input.AbsoluteRX], input.AngleDeadband)

	linear := r2.Point{X: -y, Y: -x}
	if norm := linear.Norm(); norm > 1 {
		linear = linear.Mul(1 / norm)
	}
	if svc.alliance == field.Red {
		linear = linear.Mul(-1)
	}
	return linear.Mul(svc.maxSpeed), -rx * svc.maxAngular
}

func (svc *RemoteControl) releaseInLock() {
	if svc.release != nil {
		svc.release()
	}
	svc.op = nil
	svc.release = nil
	svc.drive = nil
}
