package motionplan

import (
	"time"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/fieldnav/control"
	"go.viam.com/fieldnav/spatialmath"
)

// Profiler fits a curve through waypoints and parameterizes it in time.
type Profiler interface {
	Profile(start spatialmath.Pose, waypoints []Waypoint) *Trajectory
}

// arcSamples is how many chords approximate the arc length of each segment.
const arcSamples = 64

// SplineProfiler joins waypoints with cubic Hermite segments whose tangents follow the waypoint
// headings, and drives the whole curve with one trapezoidal velocity profile.
type SplineProfiler struct {
	profile control.TrapezoidProfile
}

// NewSplineProfiler returns a profiler limited to maxVel m/s and maxAcc m/s^2.
func NewSplineProfiler(maxVel, maxAcc float64) (*SplineProfiler, error) {
	profile, err := control.NewTrapezoidProfile(maxVel, maxAcc)
	if err != nil {
		return nil, err
	}
	return &SplineProfiler{profile: profile}, nil
}

// Profile builds the trajectory. Every waypoint is expected to carry a rotation.
func (sp *SplineProfiler) Profile(start spatialmath.Pose, waypoints []Waypoint) *Trajectory {
	points := make([]r2.Point, 0, len(waypoints)+1)
	points = append(points, start.Point)
	poses := []spatialmath.Pose{start}
	for _, wp := range waypoints {
		points = append(points, wp.Position)
		theta := start.Theta
		if wp.Rotation != nil {
			theta = *wp.Rotation
		}
		poses = append(poses, spatialmath.NewPoseFromPoint(wp.Position, theta))
	}

	tangents := make([]r2.Point, len(points))
	for i := range points {
		var fallback r2.Point
		switch {
		case len(points) == 1:
		case i == 0:
			fallback = points[1].Sub(points[0])
		case i == len(points)-1:
			fallback = points[i].Sub(points[i-1])
		default:
			fallback = points[i+1].Sub(points[i-1])
		}
		if i == 0 {
			tangents[i] = tangentFor(nil, fallback)
			continue
		}
		tangents[i] = tangentFor(waypoints[i-1].Heading, fallback)
	}

	segments := make([]segment, 0, len(waypoints))
	lengths := make([]float64, 0, len(waypoints))
	for i := 0; i+1 < len(points); i++ {
		chord := points[i+1].Sub(points[i]).Norm()
		seg := segment{
			p0: points[i],
			p1: points[i+1],
			m0: tangents[i].Mul(chord),
			m1: tangents[i+1].Mul(chord),
		}
		seg.params, seg.arcs, seg.length = arcTable(seg)
		segments = append(segments, seg)
		lengths = append(lengths, seg.length)
	}

	cumulative := make([]float64, len(lengths))
	if len(lengths) > 0 {
		floats.CumSum(cumulative, lengths)
	}
	length := floats.Sum(lengths)

	knots := make([]Knot, len(points))
	for i := range points {
		knots[i] = Knot{Pose: poses[i], Heading: spatialmath.HeadingBetween(r2.Point{}, tangents[i])}
		if i > 0 {
			knots[i].Distance = cumulative[i-1]
			knots[i].Time = seconds(sp.profile.TimeAt(length, knots[i].Distance))
		}
	}

	return &Trajectory{
		knots:    knots,
		segments: segments,
		profile:  sp.profile,
		length:   length,
		duration: seconds(sp.profile.Duration(length)),
	}
}

// arcTable samples the segment and returns matching parameter and cumulative arc length tables.
func arcTable(seg segment) (params, arcs []float64, length float64) {
	params = make([]float64, arcSamples+1)
	chords := make([]float64, arcSamples+1)
	prev := seg.position(0)
	for i := 1; i <= arcSamples; i++ {
		u := float64(i) / arcSamples
		params[i] = u
		pt := seg.position(u)
		chords[i] = pt.Sub(prev).Norm()
		prev = pt
	}
	arcs = make([]float64, len(chords))
	floats.CumSum(arcs, chords)
	return params, arcs, arcs[len(arcs)-1]
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
