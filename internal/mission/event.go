package mission

import (
	"time"

	"github.com/skylark-uav/missiond/internal/fcu"
	"github.com/skylark-uav/missiond/internal/ground"
	"github.com/skylark-uav/missiond/internal/link"
	"github.com/skylark-uav/missiond/internal/sensor"
)

// Event is an input to the coordinator. Events arrive on a single queue and
// are processed one at a time; ordering is guaranteed per link only.
type Event interface {
	event()
}

// WaypointsReceived carries a flight plan from the ground station as
// offsets from the launch point.
type WaypointsReceived struct {
	Offsets []ground.Offset
}

// VehicleUpdate carries a vehicle state snapshot from the autopilot.
type VehicleUpdate struct {
	State fcu.VehicleState
}

// SensorUpdate carries a sensor reading. The coordinator keeps only the
// latest one.
type SensorUpdate struct {
	Sample sensor.Sample
}

// TelemetryTick triggers one periodic telemetry transmission.
type TelemetryTick struct {
	At time.Time
}

// LinkDown reports a link loss. Fatal means the owning adapter has given up
// reconnecting.
type LinkDown struct {
	Link  link.ID
	Err   error
	Fatal bool
}

// LinkUp reports a link recovery.
type LinkUp struct {
	Link link.ID
}

// CommandRejected reports a command the autopilot refused.
type CommandRejected struct {
	Command string
	Reason  string
}

// AbortRequested carries an operator abort from the ground station.
type AbortRequested struct{}

func (WaypointsReceived) event() {}
func (VehicleUpdate) event()     {}
func (SensorUpdate) event()      {}
func (TelemetryTick) event()     {}
func (LinkDown) event()          {}
func (LinkUp) event()            {}
func (CommandRejected) event()   {}
func (AbortRequested) event()    {}
