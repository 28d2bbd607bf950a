package control

import (
	"math"

	"github.com/pkg/errors"
)

// TrapezoidProfile is a velocity profile that accelerates at MaxAcc up to MaxVel, cruises, and
// decelerates at MaxAcc to stop exactly at the end of the distance. Short distances never reach
// MaxVel and produce a triangular profile.
type TrapezoidProfile struct {
	MaxVel float64
	MaxAcc float64
}

// NewTrapezoidProfile validates the limits of a profile.
func NewTrapezoidProfile(maxVel, maxAcc float64) (TrapezoidProfile, error) {
	if maxVel <= 0 {
		return TrapezoidProfile{}, errors.Errorf("trapezoidal velocity profile needs a positive max_vel, got %f", maxVel)
	}
	if maxAcc <= 0 {
		return TrapezoidProfile{}, errors.Errorf("trapezoidal velocity profile needs a positive max_acc, got %f", maxAcc)
	}
	return TrapezoidProfile{MaxVel: maxVel, MaxAcc: maxAcc}, nil
}

// phases returns the peak velocity, the time spent accelerating and the time spent cruising.
func (tp TrapezoidProfile) phases(distance float64) (vPeak, tAcc, tCruise float64) {
	distance = math.Abs(distance)
	dAcc := tp.MaxVel * tp.MaxVel / (2 * tp.MaxAcc)
	if distance < 2*dAcc {
		vPeak = math.Sqrt(distance * tp.MaxAcc)
		return vPeak, vPeak / tp.MaxAcc, 0
	}
	return tp.MaxVel, tp.MaxVel / tp.MaxAcc, (distance - 2*dAcc) / tp.MaxVel
}

// Duration returns the time in seconds needed to cover distance.
func (tp TrapezoidProfile) Duration(distance float64) float64 {
	_, tAcc, tCruise := tp.phases(distance)
	return 2*tAcc + tCruise
}

// At returns the distance travelled and the velocity t seconds into covering distance. Times
// outside the profile clamp to its ends.
func (tp TrapezoidProfile) At(distance, t float64) (pos, vel float64) {
	distance = math.Abs(distance)
	vPeak, tAcc, tCruise := tp.phases(distance)
	total := 2*tAcc + tCruise
	switch {
	case t <= 0:
		return 0, 0
	case t >= total:
		return distance, 0
	case t < tAcc:
		return 0.5 * tp.MaxAcc * t * t, tp.MaxAcc * t
	case t < tAcc+tCruise:
		return 0.5*vPeak*tAcc + vPeak*(t-tAcc), vPeak
	default:
		remaining := total - t
		return distance - 0.5*tp.MaxAcc*remaining*remaining, tp.MaxAcc * remaining
	}
}

// TimeAt returns the time in seconds at which the profile covering distance has travelled pos.
// It is the inverse of At.
func (tp TrapezoidProfile) TimeAt(distance, pos float64) float64 {
	distance = math.Abs(distance)
	vPeak, tAcc, tCruise := tp.phases(distance)
	dAcc := 0.5 * vPeak * tAcc
	switch {
	case pos <= 0:
		return 0
	case pos >= distance:
		return 2*tAcc + tCruise
	case pos <= dAcc:
		return math.Sqrt(2 * pos / tp.MaxAcc)
	case pos <= distance-dAcc:
		return tAcc + (pos-dAcc)/vPeak
	default:
		return 2*tAcc + tCruise - math.Sqrt(2*(distance-pos)/tp.MaxAcc)
	}
}
