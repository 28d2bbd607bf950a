// Package field describes the competition field: its dimensions, the named zones used to
// condition navigation, and the scoring node grid.
//
// Every constant here is expressed for the blue alliance. Positions belonging to the red alliance
// are mirrored across both field axes before they are compared against the tables.
package field

import (
	"strings"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/fieldnav/spatialmath"
)

const (
	// Width is the length of the field along x, in meters.
	Width = 16.54
	// Height is the length of the field along y, in meters.
	Height = 8.02
)

// Alliance is the side of the field the robot plays for.
type Alliance uint8

// The two alliances. Blue is the reference alliance every table is written for.
const (
	Blue Alliance = iota
	Red
)

func (a Alliance) String() string {
	switch a {
	case Blue:
		return "blue"
	case Red:
		return "red"
	default:
		return "unknown"
	}
}

// AllianceFromString parses "blue" or "red", case-insensitively.
func AllianceFromString(s string) (Alliance, error) {
	switch strings.ToLower(s) {
	case "blue":
		return Blue, nil
	case "red":
		return Red, nil
	}
	return Blue, errors.Errorf("unknown alliance %q", s)
}

// ToReference converts a field point into the blue alliance frame used by the tables.
func ToReference(pt r2.Point, alliance Alliance) r2.Point {
	if alliance == Red {
		return spatialmath.MirrorPoint(pt, Width, Height)
	}
	return pt
}

// ConvertPose moves a pose expressed for alliance `from` into the frame of alliance `to`.
func ConvertPose(pose spatialmath.Pose, from, to Alliance) spatialmath.Pose {
	if from == to {
		return pose
	}
	return pose.Mirror(Width, Height)
}
