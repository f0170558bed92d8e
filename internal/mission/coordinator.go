package mission

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/skylark-uav/missiond/internal/fcu"
	"github.com/skylark-uav/missiond/internal/geo"
	"github.com/skylark-uav/missiond/internal/ground"
	"github.com/skylark-uav/missiond/internal/link"
	"github.com/skylark-uav/missiond/internal/sensor"
)

// touchdownAltitude is the relative altitude below which a landing vehicle
// is considered on the ground.
const touchdownAltitude = 1.0

// Params are the mission limits and tolerances. All of them come from
// configuration; none are hard-coded behavior.
type Params struct {
	TakeoffAltitude   float64
	WaypointTolerance float64
	AltitudeTolerance float64
	MaxRadius         float64
	MaxAltitude       float64
	MinAltitude       float64
	GeofenceSlack     float64
}

// DefaultParams returns the stock mission limits.
func DefaultParams() Params {
	return Params{
		TakeoffAltitude:   10,
		WaypointTolerance: 1,
		AltitudeTolerance: 0.5,
		MaxRadius:         250,
		MaxAltitude:       50,
		MinAltitude:       3,
		GeofenceSlack:     10,
	}
}

// WithLogger sets the logger for the coordinator.
func WithLogger(logger *slog.Logger) func(*Coordinator) {
	return func(c *Coordinator) {
		c.logger = logger.With(slog.String("component", "coordinator"))
	}
}

// Coordinator owns the mission state. It is not safe for concurrent use:
// exactly one goroutine calls Advance, which is how MissionState stays free
// of concurrent mutation.
type Coordinator struct {
	params Params
	logger *slog.Logger

	state    State
	plan     []geo.Position
	waypoint int

	home     geo.Position
	haveHome bool

	vehicle     fcu.VehicleState
	haveVehicle bool

	sample      sensor.Sample
	haveSample  bool
	sensorStale bool

	missionStart time.Time
}

// New creates a coordinator in the Idle state.
func New(params Params, options ...func(*Coordinator)) *Coordinator {
	c := Coordinator{
		params: params,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// State returns the current mission state.
func (c *Coordinator) State() State {
	return c.state
}

// Waypoint returns the index of the waypoint currently being flown to.
func (c *Coordinator) Waypoint() int {
	return c.waypoint
}

// Advance processes one event and returns the commands to dispatch. It is
// deterministic given the event and prior state, and performs no I/O.
// Terminal states absorb all events.
func (c *Coordinator) Advance(ev Event) []Command {
	if c.state.Terminal() {
		return nil
	}

	switch ev := ev.(type) {
	case VehicleUpdate:
		return c.onVehicle(ev.State)
	case WaypointsReceived:
		return c.onWaypoints(ev.Offsets)
	case SensorUpdate:
		c.sample = ev.Sample
		c.haveSample = true
		c.sensorStale = false
		return nil
	case TelemetryTick:
		return c.onTick(ev.At)
	case LinkDown:
		return c.onLinkDown(ev)
	case LinkUp:
		return c.onLinkUp(ev)
	case CommandRejected:
		return c.onRejected(ev)
	case AbortRequested:
		return c.onAbort()
	}
	return nil
}

func (c *Coordinator) onVehicle(st fcu.VehicleState) []Command {
	c.vehicle = st
	c.haveVehicle = true

	switch c.state {
	case Idle:
		c.setState(AwaitingWaypoints)
		return []Command{c.status("awaiting flight plan")}

	case Armed:
		if !st.Armed {
			return nil
		}
		// GPS is trusted once armed: lock home to the position at arm time.
		c.home = st.Position
		c.home.Alt = 0
		c.haveHome = true
		c.setState(TakingOff)
		return []Command{
			Takeoff{Altitude: c.params.TakeoffAltitude},
			c.status(fmt.Sprintf("armed, taking off to %.0fm", c.params.TakeoffAltitude)),
		}

	case TakingOff:
		if st.Position.Alt < c.params.TakeoffAltitude-c.params.AltitudeTolerance {
			return nil
		}
		// Home keeps the takeoff altitude so return-to-home is not at 0m.
		c.home.Alt = c.params.TakeoffAltitude
		c.missionStart = st.Time
		c.waypoint = 0
		c.setState(EnRoute)
		return []Command{
			Goto{Target: c.plan[0]},
			c.status("target altitude reached, en route to waypoint 0"),
		}

	case EnRoute:
		if cmds := c.checkGeofence(st); cmds != nil {
			return cmds
		}
		if geo.Distance(st.Position, c.plan[c.waypoint]) > c.params.WaypointTolerance {
			return nil
		}
		if c.waypoint == len(c.plan)-1 {
			c.setState(ReturningHome)
			return []Command{
				ReturnHome{},
				c.status(fmt.Sprintf("waypoint %d reached, returning home", c.waypoint)),
			}
		}
		c.waypoint++
		return []Command{
			Goto{Target: c.plan[c.waypoint]},
			c.status(fmt.Sprintf("waypoint %d reached, en route to waypoint %d", c.waypoint-1, c.waypoint)),
		}

	case ReturningHome:
		if cmds := c.checkGeofence(st); cmds != nil {
			return cmds
		}
		if geo.Distance(st.Position, c.home) > c.params.WaypointTolerance {
			return nil
		}
		c.setState(Landing)
		return []Command{Land{}, c.status("home reached, landing")}

	case Landing:
		if st.Armed && st.Position.Alt >= touchdownAltitude {
			return nil
		}
		c.setState(Landed)
		return []Command{c.status("landed")}
	}

	return nil
}

func (c *Coordinator) onWaypoints(offsets []ground.Offset) []Command {
	if c.state != Idle && c.state != AwaitingWaypoints {
		// The plan is fixed once the mission begins.
		c.logger.Warn("ignoring flight plan: mission already underway",
			slog.String("state", c.state.String()))
		return nil
	}

	if !c.haveVehicle {
		return []Command{c.status("flight plan rejected: no vehicle position yet")}
	}

	home := c.vehicle.Position
	home.Alt = 0

	plan, err := buildPlan(home, offsets, c.params)
	if err != nil {
		c.logger.Error(fmt.Sprintf("rejecting flight plan: %s", err))
		return []Command{c.status("flight plan rejected: " + err.Error())}
	}

	c.plan = plan
	c.home = home
	c.haveHome = true
	c.setState(Armed)
	return []Command{
		Arm{},
		c.status(fmt.Sprintf("flight plan accepted (%d waypoints), arming", len(plan))),
	}
}

// onTick packages the latest sensor sample with the vehicle position into a
// telemetry frame. A stale sample is retransmitted with its original
// timestamp; the ground station can tell staleness from sampleTime.
func (c *Coordinator) onTick(at time.Time) []Command {
	if !c.state.Active() || !c.haveVehicle {
		return nil
	}

	east, north := geo.RelativeTo(c.home, c.vehicle.Position)
	tel := ground.Telemetry{
		X:         east,
		Y:         north,
		Z:         c.vehicle.Position.Alt,
		Latitude:  c.vehicle.Position.Lat,
		Longitude: c.vehicle.Position.Lon,
	}
	if c.haveSample {
		tel.Temperature = c.sample.Temperature
		tel.SampleTime = c.sample.Timestamp
	}
	if !c.missionStart.IsZero() {
		tel.FlightTime = at.Sub(c.missionStart).Seconds()
	}

	return []Command{Transmit{Frame: ground.TelemetryFrame(tel)}}
}

func (c *Coordinator) onLinkDown(ev LinkDown) []Command {
	if ev.Link == link.Sensor {
		// Never fatal: the mission continues with stale telemetry.
		c.sensorStale = true
		c.logger.Warn("sensor link lost, continuing with stale telemetry")
		return nil
	}

	if !ev.Fatal {
		c.logger.Warn(fmt.Sprintf("link %s down, adapter reconnecting", ev.Link))
		return nil
	}

	airborne := c.state.Airborne()
	c.setState(Faulted)

	if airborne && c.haveVehicle {
		return []Command{
			ReturnHome{},
			Land{},
			c.status(fmt.Sprintf("fatal loss of %s link, returning home to land", ev.Link)),
		}
	}
	return []Command{c.status(fmt.Sprintf("fatal loss of %s link, holding", ev.Link))}
}

func (c *Coordinator) onLinkUp(ev LinkUp) []Command {
	if ev.Link == link.Sensor {
		c.sensorStale = false
	}
	c.logger.Info(fmt.Sprintf("link %s restored", ev.Link))
	return nil
}

func (c *Coordinator) onRejected(ev CommandRejected) []Command {
	airborne := c.state.Airborne()
	c.setState(Faulted)

	if airborne {
		return []Command{
			ReturnHome{},
			Land{},
			c.status(fmt.Sprintf("command %s rejected (%s), aborting flight", ev.Command, ev.Reason)),
		}
	}
	return []Command{
		c.status(fmt.Sprintf("command %s rejected (%s), remaining grounded", ev.Command, ev.Reason)),
	}
}

func (c *Coordinator) onAbort() []Command {
	if c.state.Airborne() {
		c.setState(ReturningHome)
		return []Command{ReturnHome{}, c.status("abort requested, returning home")}
	}

	if c.state.Active() {
		c.setState(Landed)
		return []Command{c.status("abort requested before takeoff, mission cancelled")}
	}
	return []Command{c.status("abort requested, no mission underway")}
}

// checkGeofence force-lands the vehicle when it strays outside the
// configured cylinder around home, with slack over the plan limits so a
// valid waypoint near the boundary does not trip it.
func (c *Coordinator) checkGeofence(st fcu.VehicleState) []Command {
	if !c.haveHome {
		return nil
	}

	if d := geo.Distance(c.home, st.Position); d > c.params.MaxRadius+c.params.GeofenceSlack {
		c.setState(Landing)
		return []Command{
			Land{},
			c.status(fmt.Sprintf("geofence radius exceeded (%.1fm), landing", d)),
		}
	}
	if st.Position.Alt > c.params.MaxAltitude+c.params.GeofenceSlack {
		c.setState(Landing)
		return []Command{
			Land{},
			c.status(fmt.Sprintf("geofence altitude exceeded (%.1fm), landing", st.Position.Alt)),
		}
	}
	return nil
}

func (c *Coordinator) setState(next State) {
	c.logger.Info("state transition",
		slog.String("from", c.state.String()),
		slog.String("to", next.String()))
	c.state = next
}

// status builds a status frame transmit command carrying the state the
// coordinator is in after the transition the status describes.
func (c *Coordinator) status(text string) Command {
	return Transmit{Frame: ground.StatusFrame(text, c.state.String())}
}
