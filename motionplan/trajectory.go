package motionplan

import (
	"math"
	"sort"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"

	"go.viam.com/fieldnav/control"
	"go.viam.com/fieldnav/spatialmath"
)

// Knot is a point the trajectory passes through: its start or one of its waypoints.
type Knot struct {
	Pose spatialmath.Pose
	// Heading is the direction of travel through the knot.
	Heading s1.Angle
	// Distance is the arc length from the start of the trajectory.
	Distance float64
	// Time is when the trajectory reaches the knot.
	Time time.Duration
}

// State is the desired robot state at one instant of a trajectory. Velocities are field relative.
type State struct {
	Time            time.Duration
	Pose            spatialmath.Pose
	Velocity        r2.Point
	AngularVelocity float64
}

// Trajectory is an immutable, time-parameterized curve from a start pose through an ordered set of
// waypoints.
type Trajectory struct {
	knots    []Knot
	segments []segment
	profile  control.TrapezoidProfile
	length   float64
	duration time.Duration
}

// Start returns the pose the trajectory starts from.
func (t *Trajectory) Start() spatialmath.Pose {
	return t.knots[0].Pose
}

// End returns the pose the trajectory finishes at, the last waypoint.
func (t *Trajectory) End() spatialmath.Pose {
	return t.knots[len(t.knots)-1].Pose
}

// Duration returns how long the trajectory takes to follow.
func (t *Trajectory) Duration() time.Duration {
	return t.duration
}

// Length returns the arc length of the trajectory in meters.
func (t *Trajectory) Length() float64 {
	return t.length
}

// Knots returns the start followed by every waypoint, in the order they are visited.
func (t *Trajectory) Knots() []Knot {
	return append([]Knot(nil), t.knots...)
}

// Sample returns the desired state at elapsed time. Times past the end hold the final pose.
func (t *Trajectory) Sample(elapsed time.Duration) State {
	if len(t.segments) == 0 || t.length == 0 {
		return State{Time: elapsed, Pose: t.End()}
	}
	if elapsed >= t.duration {
		return State{Time: elapsed, Pose: t.End()}
	}
	dist, speed := t.profile.At(t.length, elapsed.Seconds())

	// first segment whose end is past dist
	idx := sort.Search(len(t.segments), func(i int) bool {
		return t.knots[i+1].Distance > dist
	})
	if idx == len(t.segments) {
		return State{Time: elapsed, Pose: t.End()}
	}
	seg := t.segments[idx]
	along := dist - t.knots[idx].Distance
	u := seg.paramAt(along)

	from, to := t.knots[idx].Pose, t.knots[idx+1].Pose
	frac := 0.0
	if seg.length > 0 {
		frac = along / seg.length
	}
	pose := spatialmath.Interpolate(from, to, frac)
	pose.Point = seg.position(u)

	var angVel float64
	if seg.length > 0 {
		angVel = spatialmath.AngleDiff(from.Theta, to.Theta).Radians() / seg.length * speed
	}
	return State{
		Time:            elapsed,
		Pose:            pose,
		Velocity:        seg.direction(u).Mul(speed),
		AngularVelocity: angVel,
	}
}

// segment is a cubic Hermite curve between two knots with a lookup table from arc length to
// curve parameter.
type segment struct {
	p0, p1, m0, m1 r2.Point
	// params[i] is the curve parameter reached after arcs[i] meters.
	params []float64
	arcs   []float64
	length float64
}

func (s segment) position(u float64) r2.Point {
	u2, u3 := u*u, u*u*u
	h00 := 2*u3 - 3*u2 + 1
	h10 := u3 - 2*u2 + u
	h01 := -2*u3 + 3*u2
	h11 := u3 - u2
	return s.p0.Mul(h00).Add(s.m0.Mul(h10)).Add(s.p1.Mul(h01)).Add(s.m1.Mul(h11))
}

func (s segment) derivative(u float64) r2.Point {
	u2 := u * u
	h00 := 6*u2 - 6*u
	h10 := 3*u2 - 4*u + 1
	h01 := -6*u2 + 6*u
	h11 := 3*u2 - 2*u
	return s.p0.Mul(h00).Add(s.m0.Mul(h10)).Add(s.p1.Mul(h01)).Add(s.m1.Mul(h11))
}

// direction returns the unit tangent at u, or the chord direction where the tangent vanishes.
func (s segment) direction(u float64) r2.Point {
	d := s.derivative(u)
	if d.Norm() < 1e-9 {
		d = s.p1.Sub(s.p0)
	}
	if d.Norm() < 1e-9 {
		return r2.Point{}
	}
	return d.Normalize()
}

// paramAt returns the curve parameter reached after along meters.
func (s segment) paramAt(along float64) float64 {
	if s.length == 0 || along <= 0 {
		return 0
	}
	if along >= s.length {
		return 1
	}
	i := sort.SearchFloat64s(s.arcs, along)
	if i == 0 {
		return 0
	}
	a0, a1 := s.arcs[i-1], s.arcs[i]
	if a1 == a0 {
		return s.params[i]
	}
	return s.params[i-1] + (s.params[i]-s.params[i-1])*(along-a0)/(a1-a0)
}

func tangentFor(heading *s1.Angle, fallback r2.Point) r2.Point {
	if heading != nil {
		return r2.Point{X: math.Cos(heading.Radians()), Y: math.Sin(heading.Radians())}
	}
	if fallback.Norm() < 1e-9 {
		return r2.Point{}
	}
	return fallback.Normalize()
}
