package mission

import (
	"fmt"

	"github.com/skylark-uav/missiond/internal/geo"
	"github.com/skylark-uav/missiond/internal/ground"
)

// buildPlan converts relative waypoint offsets into absolute positions and
// validates each against the mission limits. An invalid plan is rejected
// whole; a partial plan must never fly.
func buildPlan(home geo.Position, offsets []ground.Offset, p Params) ([]geo.Position, error) {
	if len(offsets) == 0 {
		return nil, fmt.Errorf("empty flight plan")
	}

	plan := make([]geo.Position, 0, len(offsets))
	for i, off := range offsets {
		wp := geo.Offset(home, off.Y, off.X)
		wp.Alt = off.Z

		if d := geo.Distance(home, wp); d > p.MaxRadius {
			return nil, fmt.Errorf("waypoint %d is %.1fm from home, exceeds maximum radius of %.0fm", i, d, p.MaxRadius)
		}
		if wp.Alt > p.MaxAltitude {
			return nil, fmt.Errorf("waypoint %d altitude %.1fm exceeds maximum of %.0fm", i, wp.Alt, p.MaxAltitude)
		}
		if wp.Alt < p.MinAltitude {
			return nil, fmt.Errorf("waypoint %d altitude %.1fm is under minimum of %.0fm", i, wp.Alt, p.MinAltitude)
		}

		plan = append(plan, wp)
	}

	return plan, nil
}
