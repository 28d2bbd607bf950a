// Package navigation contains the autonomous driving behaviors: following a generated trajectory
// and the field specific variants built on it.
package navigation

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/fieldnav/components/base"
	"go.viam.com/fieldnav/components/base/kinematicbase"
	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/input"
	"go.viam.com/fieldnav/logging"
	"go.viam.com/fieldnav/motionplan"
	"go.viam.com/fieldnav/operation"
)

// A Behavior is driven by a caller owned loop: Start once, Tick every control cycle until IsDone,
// and Cancel to interrupt it.
type Behavior interface {
	Name() string
	Start(ctx context.Context) error
	Tick(ctx context.Context) error
	Cancel(ctx context.Context) error
	IsDone() bool
}

// State is where a behavior is in its lifecycle.
type State uint8

// The behavior states. A behavior moves from idle to running and ends either completed or
// cancelled; it can be started again from either.
const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case StateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Deps are the collaborators shared by every driving behavior.
type Deps struct {
	Base      base.Base
	Localizer base.Localizer
	Follower  *kinematicbase.Follower
	Profiler  motionplan.Profiler
	// Drivetrain arbitrates which behavior may command Base.
	Drivetrain *operation.SingleOperationManager
	// Controller is the operator gamepad. Nil disables operator interruption.
	Controller   input.Controller
	IdleDeadband float64
	Alliance     field.Alliance
	Clock        clock.Clock
	Logger       logging.Logger
}

// Validate ensures every required collaborator is set.
func (d *Deps) Validate() error {
	switch {
	case d.Base == nil:
		return errors.New("navigation requires a base")
	case d.Localizer == nil:
		return errors.New("navigation requires a localizer")
	case d.Follower == nil:
		return errors.New("navigation requires a trajectory follower")
	case d.Profiler == nil:
		return errors.New("navigation requires a trajectory profiler")
	case d.Drivetrain == nil:
		return errors.New("navigation requires a drivetrain operation manager")
	case d.Logger == nil:
		return errors.New("navigation requires a logger")
	}
	return nil
}

func (d *Deps) withDefaults() Deps {
	out := *d
	if out.Clock == nil {
		out.Clock = clock.New()
	}
	if out.IdleDeadband <= 0 {
		out.IdleDeadband = input.IdleDeadband
	}
	return out
}
