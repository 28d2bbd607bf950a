// Package arm defines the scoring arm, a parallelogram linkage driven to a single angle.
package arm

import (
	"context"

	"go.viam.com/fieldnav/field"
)

// An Arm moves its end effector to an angle in degrees measured from the stowed position.
type Arm interface {
	// GoToAngle moves the arm and blocks until it gets there or ctx is done.
	GoToAngle(ctx context.Context, degrees float64) error

	// Angle returns the current angle in degrees.
	Angle(ctx context.Context) (float64, error)

	// Stop stops the arm where it is.
	Stop(ctx context.Context) error
}

// Angles are the placement angles per game piece.
type Angles struct {
	Cone float64 `json:"cone_deg"`
	Cube float64 `json:"cube_deg"`
}

// DefaultAngles are the placement angles of the competition arm.
var DefaultAngles = Angles{Cone: 119.17, Cube: 90}

// For returns the placement angle for piece.
func (a Angles) For(piece field.Gamepiece) float64 {
	if piece == field.Cone {
		return a.Cone
	}
	return a.Cube
}
