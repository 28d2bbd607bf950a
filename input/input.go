// Package input reads the operator's gamepad.
package input

import (
	"context"
	"math"
	"time"
)

// Deadbands applied to the operator sticks.
const (
	// JoystickDeadband is ignored around center when driving by translation sticks.
	JoystickDeadband = 0.1
	// AngleDeadband is ignored around center on the rotation stick.
	AngleDeadband = 0.2
	// IdleDeadband is how far any stick must move before the operator counts as taking over.
	IdleDeadband = 0.3
)

// Controller is a logical "container" more than an actual device.
// Could be a single gamepad, or a collection of axes read from the driver station.
type Controller interface {
	// Axes returns the most recent value of every axis, -1.0 to +1.0.
	Axes(ctx context.Context) (map[ControlCode]float64, error)
}

// ControlCode identifies an axis.
type ControlCode uint32

// Stick axes.
const (
	// Reserving keys under 1000 for overlap with standard keycodes
	AbsoluteX  ControlCode = 1000
	AbsoluteY  ControlCode = 1001
	AbsoluteRX ControlCode = 1003
	AbsoluteRY ControlCode = 1004
)

// Sticks are the axes that count as operator input.
var Sticks = []ControlCode{AbsoluteX, AbsoluteY, AbsoluteRX, AbsoluteRY}

func (c ControlCode) String() string {
	switch c {
	case AbsoluteX:
		return "ABS_X"
	case AbsoluteY:
		return "ABS_Y"
	case AbsoluteRX:
		return "ABS_RX"
	case AbsoluteRY:
		return "ABS_RY"
	default:
		return "UNKNOWN"
	}
}

// Event is one axis change.
type Event struct {
	Time  time.Time
	Code  ControlCode
	Value float64
}

// ApplyDeadband returns 0 inside the deadband and value otherwise.
func ApplyDeadband(value, deadband float64) float64 {
	if math.Abs(value) <= deadband {
		return 0
	}
	return value
}

// HasInput returns whether any stick is pushed past deadband.
func HasInput(ctx context.Context, c Controller, deadband float64) (bool, error) {
	axes, err := c.Axes(ctx)
	if err != nil {
		return false, err
	}
	for _, code := range Sticks {
		if ApplyDeadband(axes[code], deadband) != 0 {
			return true, nil
		}
	}
	return false, nil
}
