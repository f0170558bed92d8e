package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skylark-uav/missiond/internal/fcu"
	"github.com/skylark-uav/missiond/internal/flightlog"
	"github.com/skylark-uav/missiond/internal/ground"
	"github.com/skylark-uav/missiond/internal/link"
	"github.com/skylark-uav/missiond/internal/mission"
	"github.com/skylark-uav/missiond/internal/sensor"
)

// WithFlightLog makes the orchestrator record telemetry and mission events
// under the given session.
func WithFlightLog(store *flightlog.Store, sessionID int64) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.store = store
		o.sessionID = sessionID
	}
}

// WithTelemetryInterval sets the periodic telemetry cadence.
func WithTelemetryInterval(interval time.Duration) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.interval = interval
	}
}

// Orchestrator wires the three link adapters, the telemetry ticker and the
// mission coordinator together. The adapters produce into channels; the
// orchestrator is the single consumer, so coordinator state is only ever
// touched from one goroutine.
type Orchestrator struct {
	coordinator *mission.Coordinator
	fcuLink     *fcu.Link
	sensors     *sensor.Subscriber
	radio       *ground.Transport

	store     *flightlog.Store
	sessionID int64

	interval time.Duration
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(coordinator *mission.Coordinator, fcuLink *fcu.Link, sensors *sensor.Subscriber,
	radio *ground.Transport, logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {

	o := Orchestrator{
		coordinator: coordinator,
		fcuLink:     fcuLink,
		sensors:     sensors,
		radio:       radio,
		interval:    time.Second,
		logger:      logger,
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// Run services all links until the context is cancelled or the mission
// reaches a terminal state. A final status frame is transmitted best-effort
// before the adapters are drained.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	states := make(chan fcu.VehicleState, 16)
	rejects := make(chan fcu.Rejection, 4)
	samples := make(chan sensor.Sample, 16)
	frames := make(chan ground.Frame, 16)
	notify := make(chan link.Event, 16)

	o.wg.Add(3)
	go func() {
		defer o.wg.Done()
		o.fcuLink.Run(ctx, states, rejects, notify)
	}()
	go func() {
		defer o.wg.Done()
		o.sensors.Run(ctx, samples, notify)
	}()
	go func() {
		defer o.wg.Done()
		o.radio.Run(ctx, frames, notify)
	}()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop

		case st := <-states:
			o.advance(ctx, mission.VehicleUpdate{State: st})

		case r := <-rejects:
			o.advance(ctx, mission.CommandRejected{Command: r.Command, Reason: r.Reason})

		case sample := <-samples:
			o.advance(ctx, mission.SensorUpdate{Sample: sample})

		case frame := <-frames:
			o.handleInbound(ctx, frame)

		case ev := <-notify:
			if ev.Up {
				o.advance(ctx, mission.LinkUp{Link: ev.Link})
			} else {
				o.advance(ctx, mission.LinkDown{Link: ev.Link, Err: ev.Err, Fatal: ev.Fatal})
			}

		case t := <-ticker.C:
			o.advance(ctx, mission.TelemetryTick{At: t})
		}

		if o.coordinator.State().Terminal() {
			o.logger.Info("mission reached terminal state",
				slog.String("state", o.coordinator.State().String()))
			break loop
		}
	}

	// Final status frame, best effort; the radio may be the thing that
	// failed.
	final := ground.StatusFrame("mission daemon stopping", o.coordinator.State().String())
	if err := o.radio.Send(final); err != nil && !errors.Is(err, ground.ErrNotConnected) {
		o.logger.Warn(fmt.Sprintf("sending final status: %s", err))
	}
	o.record(final)

	cancel()
	o.wg.Wait()
	return nil
}

// advance runs one coordinator step and dispatches the commands it emitted.
func (o *Orchestrator) advance(ctx context.Context, ev mission.Event) {
	for _, cmd := range o.coordinator.Advance(ev) {
		o.dispatch(cmd)
	}
}

func (o *Orchestrator) dispatch(cmd mission.Command) {
	var err error
	switch cmd := cmd.(type) {
	case mission.Arm:
		err = o.fcuLink.Arm()
	case mission.Takeoff:
		err = o.fcuLink.Takeoff(cmd.Altitude)
	case mission.Goto:
		err = o.fcuLink.Goto(cmd.Target)
	case mission.ReturnHome:
		err = o.fcuLink.ReturnHome()
	case mission.Land:
		err = o.fcuLink.Land()
	case mission.Transmit:
		err = o.radio.Send(cmd.Frame)
		if errors.Is(err, ground.ErrNotConnected) {
			// Lossy channel: the next tick supersedes this frame.
			err = nil
		}
		o.record(cmd.Frame)
	default:
		err = fmt.Errorf("unknown command %T", cmd)
	}

	if err != nil {
		o.logger.Error(fmt.Sprintf("dispatching %T: %s", cmd, err))
	}
}

func (o *Orchestrator) handleInbound(ctx context.Context, f ground.Frame) {
	switch f.Type {
	case ground.FrameWaypoints:
		o.advance(ctx, mission.WaypointsReceived{Offsets: f.Waypoints})

	case ground.FrameCommand:
		if f.Command == "abort" {
			o.advance(ctx, mission.AbortRequested{})
			return
		}
		o.logger.Warn("unknown ground command", slog.String("command", f.Command))

	default:
		o.logger.Warn("unexpected inbound frame", slog.String("type", string(f.Type)))
	}
}

// record persists outbound frames to the flight log: telemetry frames as
// track points, status frames as mission events.
func (o *Orchestrator) record(f ground.Frame) {
	if o.store == nil {
		return
	}

	// Log writes must not stall the event loop on a slow disk for long;
	// bound them individually.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var err error
	switch f.Type {
	case ground.FrameTelemetry:
		t := f.Telemetry
		rec := flightlog.Telemetry{
			Timestamp:  time.Now(),
			FlightTime: t.FlightTime,
		}
		rec.Position.Lat = t.Latitude
		rec.Position.Lon = t.Longitude
		rec.Position.Alt = t.Z
		if !t.SampleTime.IsZero() {
			temp := t.Temperature
			rec.Temperature = &temp
		}
		err = o.store.StoreTelemetry(ctx, o.sessionID, &rec)

	case ground.FrameStatus:
		err = o.store.StoreEvent(ctx, o.sessionID, &flightlog.Event{
			Timestamp: time.Now(),
			State:     f.Status.State,
			Detail:    f.Status.Text,
		})
	}

	if err != nil {
		o.logger.Error(fmt.Sprintf("recording %s frame: %s", f.Type, err))
	}
}
