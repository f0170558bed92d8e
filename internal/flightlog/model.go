package flightlog

import (
	"time"

	"github.com/skylark-uav/missiond/internal/geo"
)

// Session is one run of the mission daemon.
type Session struct {
	ID        int64
	StartTime time.Time
	Vehicle   string
	Config    *string
}

// Telemetry is one recorded telemetry transmission.
type Telemetry struct {
	Timestamp   time.Time
	Position    geo.Position
	Temperature *float64
	FlightTime  float64
}

// Event is one recorded mission event, usually a state transition or a
// fault.
type Event struct {
	Timestamp time.Time
	State     string
	Detail    string
}

// TrackPoint is one point of the flown track read back from the log.
type TrackPoint struct {
	Timestamp   time.Time
	Position    geo.Position
	Temperature *float64
	FlightTime  float64
}
