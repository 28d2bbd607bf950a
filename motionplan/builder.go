// Package motionplan turns ordered waypoints into trajectories the drivetrain can follow.
package motionplan

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
	"github.com/samber/lo"

	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/spatialmath"
)

// Builder accumulates waypoints expressed for a reference alliance and generates trajectories in
// the frame of the alliance the robot is playing for. A Builder is not safe for concurrent use; it
// is meant to be created, filled and discarded within one control tick.
type Builder struct {
	reference field.Alliance
	alliance  field.Alliance
	profiler  Profiler
	waypoints []Waypoint
}

// NewBuilder returns an empty builder. Waypoints are given in the reference alliance frame and
// converted to the alliance frame when generating.
func NewBuilder(reference, alliance field.Alliance, profiler Profiler) *Builder {
	return &Builder{reference: reference, alliance: alliance, profiler: profiler}
}

// Add appends a waypoint whose heading constraint is the pose rotation.
func (b *Builder) Add(pose spatialmath.Pose) *Builder {
	b.waypoints = append(b.waypoints, NewWaypoint(pose))
	return b
}

// AddWithHeading appends a waypoint at pose that is travelled through along exitHeading while the
// robot faces the pose rotation.
func (b *Builder) AddWithHeading(pose spatialmath.Pose, exitHeading s1.Angle) *Builder {
	b.waypoints = append(b.waypoints, NewWaypointWithHeading(pose, exitHeading))
	return b
}

// AddPoint appends an unconstrained waypoint.
func (b *Builder) AddPoint(pt r2.Point) *Builder {
	b.waypoints = append(b.waypoints, Waypoint{Position: pt})
	return b
}

// AddWaypoint appends an already built waypoint.
func (b *Builder) AddWaypoint(wp Waypoint) *Builder {
	b.waypoints = append(b.waypoints, wp)
	return b
}

// Len returns the number of accumulated waypoints.
func (b *Builder) Len() int {
	return len(b.waypoints)
}

// Waypoints returns a copy of the accumulated waypoints in the reference frame, in insertion
// order.
func (b *Builder) Waypoints() []Waypoint {
	return append([]Waypoint(nil), b.waypoints...)
}

// Generate returns a trajectory starting at current, which is expressed in the alliance frame,
// and visiting every waypoint in insertion order. With no waypoints the trajectory stays at
// current and is complete immediately.
func (b *Builder) Generate(current spatialmath.Pose) *Trajectory {
	converted := lo.Map(b.waypoints, func(w Waypoint, _ int) Waypoint {
		return w.convert(b.reference, b.alliance)
	})
	return b.profiler.Profile(current, resolveRotations(current, converted))
}

// resolveRotations fills unconstrained rotations from the next constrained waypoint. Trailing
// unconstrained waypoints keep the last known rotation, or the start rotation if there is none.
func resolveRotations(start spatialmath.Pose, waypoints []Waypoint) []Waypoint {
	out := make([]Waypoint, len(waypoints))
	copy(out, waypoints)

	var next *s1.Angle
	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Rotation != nil {
			next = out[i].Rotation
			continue
		}
		if next != nil {
			out[i].Rotation = lo.ToPtr(*next)
		}
	}

	last := start.Theta
	for i := range out {
		if out[i].Rotation == nil {
			out[i].Rotation = lo.ToPtr(last)
		}
		last = *out[i].Rotation
	}
	return out
}
