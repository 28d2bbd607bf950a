package field

import (
	"github.com/golang/geo/r2"
	"github.com/samber/lo"

	"go.viam.com/fieldnav/spatialmath"
)

// Zone is a named rectangular region of the field.
type Zone uint8

// The known zones. ZoneUnknown is a legitimate classification for points outside every region.
const (
	ZoneUnknown Zone = iota
	ZoneRamp
	ZoneOpenArea
	ZoneEntranceTop
	ZoneEntranceBottom
	ZoneCommunityTop
	ZoneCommunityMiddle
	ZoneCommunityBottom
	ZoneLoadingZone
)

func (z Zone) String() string {
	switch z {
	case ZoneRamp:
		return "RAMP"
	case ZoneOpenArea:
		return "OPEN_AREA"
	case ZoneEntranceTop:
		return "ENTRANCE_TOP"
	case ZoneEntranceBottom:
		return "ENTRANCE_BOTTOM"
	case ZoneCommunityTop:
		return "COMMUNITY_TOP"
	case ZoneCommunityMiddle:
		return "COMMUNITY_MIDDLE"
	case ZoneCommunityBottom:
		return "COMMUNITY_BOTTOM"
	case ZoneLoadingZone:
		return "LOADING_ZONE"
	default:
		return "UNKNOWN"
	}
}

// Region pairs a zone with the rectangle it owns.
type Region struct {
	Zone Zone
	Rect spatialmath.Rectangle
}

// Zone rectangles in meters, blue alliance.
var (
	RampRect            = spatialmath.MustRectangle(2.91, 1.51, 4.85, 3.98)
	OpenAreaRect        = spatialmath.MustRectangle(4.85, 0.0, 11.69, 8.02)
	EntranceTopRect     = spatialmath.MustRectangle(2.91, 3.98, 4.85, 5.49)
	EntranceBottomRect  = spatialmath.MustRectangle(2.91, 0.0, 4.85, 1.51)
	CommunityTopRect    = spatialmath.MustRectangle(0.0, 3.98, 2.91, 5.49)
	CommunityMiddleRect = spatialmath.MustRectangle(0.0, 1.51, 2.91, 3.98)
	CommunityBottomRect = spatialmath.MustRectangle(0.0, 0.0, 2.91, 1.51)
	LoadingZoneRect     = spatialmath.MustRectangle(11.69, 5.55, 16.54, 8.02)
)

// regions is ordered by priority: where rectangles share an edge the earlier zone wins.
var regions = []Region{
	{ZoneRamp, RampRect},
	{ZoneOpenArea, OpenAreaRect},
	{ZoneEntranceTop, EntranceTopRect},
	{ZoneEntranceBottom, EntranceBottomRect},
	{ZoneCommunityTop, CommunityTopRect},
	{ZoneCommunityMiddle, CommunityMiddleRect},
	{ZoneCommunityBottom, CommunityBottomRect},
	{ZoneLoadingZone, LoadingZoneRect},
}

// Regions returns a copy of the zone table in priority order.
func Regions() []Region {
	return append([]Region(nil), regions...)
}

// RegionOf returns the rectangle owned by a zone. ok is false for ZoneUnknown.
func RegionOf(zone Zone) (spatialmath.Rectangle, bool) {
	region, ok := lo.Find(regions, func(r Region) bool { return r.Zone == zone })
	return region.Rect, ok
}

// Classify returns the first zone, in priority order, whose rectangle contains pt. Points of the
// red alliance are mirrored into the blue frame first. Points outside every rectangle classify as
// ZoneUnknown.
func Classify(pt r2.Point, alliance Alliance) Zone {
	ref := ToReference(pt, alliance)
	for _, region := range regions {
		if region.Rect.Contains(ref) {
			return region.Zone
		}
	}
	return ZoneUnknown
}

// ClassifyPose is Classify on the position of a pose.
func ClassifyPose(pose spatialmath.Pose, alliance Alliance) Zone {
	return Classify(pose.Point, alliance)
}

// CommunityZones are the three zones that make up the alliance community.
var CommunityZones = []Zone{ZoneCommunityTop, ZoneCommunityMiddle, ZoneCommunityBottom}

// InCommunity reports whether pt lies inside any of the community rectangles, regardless of the
// zone priority order.
func InCommunity(pt r2.Point, alliance Alliance) bool {
	ref := ToReference(pt, alliance)
	return lo.SomeBy(CommunityZones, func(z Zone) bool {
		rect, _ := RegionOf(z)
		return rect.Contains(ref)
	})
}
