package motionplan

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
	"github.com/samber/lo"

	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/spatialmath"
)

// Waypoint is a position the trajectory must pass through.
type Waypoint struct {
	Position r2.Point
	// Rotation is the orientation the robot must hold at the waypoint. Nil accepts any rotation;
	// the generated trajectory inherits the next constrained one.
	Rotation *s1.Angle
	// Heading is the direction of travel through the waypoint, used to shape the curve. Nil lets
	// the profiler choose.
	Heading *s1.Angle
}

// NewWaypoint returns a waypoint at pose whose rotation and direction of travel are both the pose
// heading.
func NewWaypoint(pose spatialmath.Pose) Waypoint {
	return Waypoint{Position: pose.Point, Rotation: lo.ToPtr(pose.Theta), Heading: lo.ToPtr(pose.Theta)}
}

// NewWaypointWithHeading returns a waypoint at pose that is passed through travelling along
// heading while the robot faces the pose heading.
func NewWaypointWithHeading(pose spatialmath.Pose, heading s1.Angle) Waypoint {
	return Waypoint{Position: pose.Point, Rotation: lo.ToPtr(pose.Theta), Heading: lo.ToPtr(heading.Normalized())}
}

// convert moves the waypoint from the frame of alliance `from` into the frame of `to`.
func (w Waypoint) convert(from, to field.Alliance) Waypoint {
	if from == to {
		return w
	}
	out := Waypoint{Position: field.ConvertPose(spatialmath.Pose{Point: w.Position}, from, to).Point}
	if w.Rotation != nil {
		out.Rotation = lo.ToPtr(convertAngle(*w.Rotation, from, to))
	}
	if w.Heading != nil {
		out.Heading = lo.ToPtr(convertAngle(*w.Heading, from, to))
	}
	return out
}

func convertAngle(a s1.Angle, from, to field.Alliance) s1.Angle {
	return field.ConvertPose(spatialmath.Pose{Theta: a}, from, to).Theta
}
