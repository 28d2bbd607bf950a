// Package control contains the feedback controllers and motion profiles used to drive the base.
package control

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// PIDConfig holds the gains of a PID controller.
type PIDConfig struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
	// IntegralLimit clamps the magnitude of the integral term. Zero means unbounded.
	IntegralLimit float64 `json:"integral_limit,omitempty"`
}

// PID is the standard implementation of a PID controller.
type PID struct {
	mu     sync.Mutex
	cfg    PIDConfig
	int    float64
	error  float64
	primed bool
}

// NewPID returns a PID controller. At least one of the gains must be non-zero.
func NewPID(cfg PIDConfig) (*PID, error) {
	if cfg.Kp == 0 && cfg.Ki == 0 && cfg.Kd == 0 {
		return nil, errors.New("pid controller should have at least one of Ki, Kp or Kd set")
	}
	if cfg.IntegralLimit < 0 {
		return nil, errors.Errorf("pid integral limit must be non-negative, got %f", cfg.IntegralLimit)
	}
	return &PID{cfg: cfg}, nil
}

// Next returns the controller output for one step, dt is the delta time between two subsequent
// calls.
func (p *PID) Next(setPoint, measured float64, dt time.Duration) float64 {
	return p.NextError(setPoint-measured, dt)
}

// NextError is Next for callers that compute the error themselves, e.g. wrapped angles.
func (p *PID) NextError(err float64, dt time.Duration) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	dtS := dt.Seconds()
	if dtS <= 0 {
		return p.cfg.Kp*err + p.int
	}
	p.int += p.cfg.Ki * err * dtS
	if p.cfg.IntegralLimit > 0 {
		p.int = math.Max(-p.cfg.IntegralLimit, math.Min(p.cfg.IntegralLimit, p.int))
	}
	var deriv float64
	if p.primed {
		deriv = (err - p.error) / dtS
	}
	p.error = err
	p.primed = true
	return p.cfg.Kp*err + p.int + p.cfg.Kd*deriv
}

// Reset clears the accumulated state.
func (p *PID) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.int = 0
	p.error = 0
	p.primed = false
}
