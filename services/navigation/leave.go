package navigation

import (
	"strings"
	"sync"

	"github.com/golang/geo/s1"
	"github.com/pkg/errors"

	"go.viam.com/fieldnav/field"
	"go.viam.com/fieldnav/motionplan"
	"go.viam.com/fieldnav/spatialmath"
)

// ExitSide is which side of the charge station the robot leaves the community by.
type ExitSide uint8

// The exit sides.
const (
	ExitTop ExitSide = iota
	ExitBottom
)

func (s ExitSide) String() string {
	if s == ExitBottom {
		return "bottom"
	}
	return "top"
}

// ExitSideFromString parses "top" or "bottom".
func ExitSideFromString(s string) (ExitSide, error) {
	switch strings.ToLower(s) {
	case "top":
		return ExitTop, nil
	case "bottom":
		return ExitBottom, nil
	}
	return ExitTop, errors.Errorf("unknown exit side %q", s)
}

// leaveWaypoint faces the alliance wall while travelling away from it.
func leaveWaypoint(x, y float64) motionplan.Waypoint {
	return motionplan.NewWaypointWithHeading(spatialmath.NewPoseFromDegrees(x, y, 180), s1.Angle(0))
}

// A robot in the middle or in the far community rectangle first lines up with the exit lane; every
// community rectangle then drives out past the charge station.
var leaveRules = map[ExitSide][]motionplan.InsertionRule{
	ExitTop: {
		{
			Zones:    []field.Zone{field.ZoneCommunityMiddle, field.ZoneCommunityBottom},
			Waypoint: leaveWaypoint(2.06, 4.89),
		},
		{
			Zones:    []field.Zone{field.ZoneCommunityMiddle, field.ZoneCommunityBottom, field.ZoneCommunityTop},
			Waypoint: leaveWaypoint(5.6, 4.89),
		},
	},
	ExitBottom: {
		{
			Zones:    []field.Zone{field.ZoneCommunityMiddle, field.ZoneCommunityTop},
			Waypoint: leaveWaypoint(2.5, 0.7),
		},
		{
			Zones:    []field.Zone{field.ZoneCommunityMiddle, field.ZoneCommunityTop, field.ZoneCommunityBottom},
			Waypoint: leaveWaypoint(5.6, 0.7),
		},
	},
}

// LeaveRules returns the insertion rules used to leave by side.
func LeaveRules(side ExitSide) []motionplan.InsertionRule {
	return append([]motionplan.InsertionRule(nil), leaveRules[side]...)
}

// LeaveCommunity drives out of the community by the chosen side. Outside the community there is
// nothing to do and the behavior completes on its first tick.
type LeaveCommunity struct {
	*PathFollower

	mu   sync.Mutex
	side ExitSide
}

// NewLeaveCommunity returns an idle leave behavior.
func NewLeaveCommunity(side ExitSide, deps Deps) (*LeaveCommunity, error) {
	lc := &LeaveCommunity{side: side}
	pf, err := NewPathFollower("leave_community", lc.plan, deps)
	if err != nil {
		return nil, err
	}
	lc.PathFollower = pf
	return lc, nil
}

// ExitSide returns the chosen side.
func (lc *LeaveCommunity) ExitSide() ExitSide {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.side
}

// SetExitSide changes the side. A running behavior replans toward it.
func (lc *LeaveCommunity) SetExitSide(side ExitSide) {
	lc.mu.Lock()
	changed := lc.side != side
	lc.side = side
	lc.mu.Unlock()
	if changed {
		lc.RequestReplan()
	}
}

func (lc *LeaveCommunity) plan(b *motionplan.Builder, zone field.Zone) {
	motionplan.ApplyRules(b, zone, leaveRules[lc.ExitSide()])
}
