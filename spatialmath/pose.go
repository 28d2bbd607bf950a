// Package spatialmath defines the planar geometry used to reason about the robot on the field.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
)

// Pose is a position on the field plus the direction the robot faces, in meters and radians.
type Pose struct {
	Point r2.Point
	Theta s1.Angle
}

// NewPose returns a pose at (x, y) facing theta.
func NewPose(x, y float64, theta s1.Angle) Pose {
	return Pose{Point: r2.Point{X: x, Y: y}, Theta: theta.Normalized()}
}

// NewPoseFromDegrees returns a pose at (x, y) facing the given heading in degrees.
func NewPoseFromDegrees(x, y, degrees float64) Pose {
	return NewPose(x, y, s1.Angle(degrees)*s1.Degree)
}

// NewPoseFromPoint returns a pose at the point facing theta.
func NewPoseFromPoint(pt r2.Point, theta s1.Angle) Pose {
	return Pose{Point: pt, Theta: theta.Normalized()}
}

// NewZeroPose returns a pose at the field origin facing along +x.
func NewZeroPose() Pose {
	return Pose{}
}

// X returns the x coordinate.
func (p Pose) X() float64 { return p.Point.X }

// Y returns the y coordinate.
func (p Pose) Y() float64 { return p.Point.Y }

// Mirror reflects the pose across both axes of a width x height field. The heading turns by 180
// degrees so that a robot facing its own alliance wall keeps facing it.
func (p Pose) Mirror(width, height float64) Pose {
	return Pose{
		Point: MirrorPoint(p.Point, width, height),
		Theta: (p.Theta + math.Pi).Normalized(),
	}
}

// DistanceTo returns the euclidean distance between two poses, ignoring heading.
func (p Pose) DistanceTo(other Pose) float64 {
	return p.Point.Sub(other.Point).Norm()
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.3f, %.3f) %.1f°", p.Point.X, p.Point.Y, p.Theta.Degrees())
}

// MirrorPoint reflects a point across both axes of a width x height field.
func MirrorPoint(pt r2.Point, width, height float64) r2.Point {
	return r2.Point{X: width - pt.X, Y: height - pt.Y}
}

// HeadingBetween returns the direction of travel from one point to another.
func HeadingBetween(from, to r2.Point) s1.Angle {
	d := to.Sub(from)
	return s1.Angle(math.Atan2(d.Y, d.X))
}

// AngleDiff returns b - a wrapped to (-pi, pi].
func AngleDiff(a, b s1.Angle) s1.Angle {
	return (b - a).Normalized()
}

// Interpolate returns the pose `by` of the way between from and to, taking the short way around
// for the heading. by is clamped to [0, 1].
func Interpolate(from, to Pose, by float64) Pose {
	by = math.Max(0, math.Min(1, by))
	return Pose{
		Point: from.Point.Add(to.Point.Sub(from.Point).Mul(by)),
		Theta: (from.Theta + AngleDiff(from.Theta, to.Theta)*s1.Angle(by)).Normalized(),
	}
}

// PoseAlmostEqual returns whether two poses are within epsilon meters and epsilon radians.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	return a.DistanceTo(b) <= epsilon && math.Abs(AngleDiff(a.Theta, b.Theta).Radians()) <= epsilon
}
