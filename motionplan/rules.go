package motionplan

import (
	"github.com/samber/lo"

	"go.viam.com/fieldnav/field"
)

// InsertionRule adds Waypoint to a builder when the robot starts in one of Zones.
type InsertionRule struct {
	Zones    []field.Zone
	Waypoint Waypoint
}

// ApplyRules evaluates rules in order and appends the waypoint of every rule whose zone set holds
// zone. Several rules may match the same zone, so an early zone can pick up every later waypoint
// as well. It returns how many waypoints were added; a zone no rule names adds nothing.
func ApplyRules(b *Builder, zone field.Zone, rules []InsertionRule) int {
	added := 0
	for _, rule := range rules {
		if lo.Contains(rule.Zones, zone) {
			b.AddWaypoint(rule.Waypoint)
			added++
		}
	}
	return added
}
