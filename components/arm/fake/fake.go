// Package fake implements a fake arm.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/fieldnav/logging"
	"go.viam.com/fieldnav/operation"
)

// Arm is a fake arm that moves at a fixed rate.
type Arm struct {
	logger logging.Logger
	// DegsPerSec is how fast the arm moves. Zero moves instantly.
	DegsPerSec float64

	opMgr operation.SingleOperationManager
	mu    sync.Mutex
	angle float64
	moves []float64
}

// NewArm returns a stowed fake arm.
func NewArm(logger logging.Logger) *Arm {
	return &Arm{logger: logger}
}

// GoToAngle waits for the travel time and then sets the angle.
func (a *Arm) GoToAngle(ctx context.Context, degrees float64) error {
	if math.IsNaN(degrees) || degrees < 0 || degrees > 180 {
		return errors.Errorf("arm angle %f out of range [0, 180]", degrees)
	}
	a.mu.Lock()
	travel := math.Abs(degrees - a.angle)
	a.mu.Unlock()

	if a.DegsPerSec > 0 {
		waitDur := time.Duration(travel / a.DegsPerSec * float64(time.Second))
		if !a.opMgr.NewTimedWaitOp(ctx, "goToAngle", waitDur) {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "arm move interrupted")
			}
			return errors.New("arm move interrupted")
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.angle = degrees
	a.moves = append(a.moves, degrees)
	a.logger.Debugw("arm moved", "angle", degrees)
	return nil
}

// Angle returns the last angle reached.
func (a *Arm) Angle(ctx context.Context) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.angle, nil
}

// Moves returns every angle the arm has moved to.
func (a *Arm) Moves() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]float64(nil), a.moves...)
}

// Stop interrupts a move in progress.
func (a *Arm) Stop(ctx context.Context) error {
	a.opMgr.CancelRunning()
	return nil
}
