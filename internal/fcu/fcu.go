// Package fcu maintains the MAVLink link to the autopilot. It exposes the
// motion commands the mission needs (arm, takeoff, goto, return-to-home,
// land) and streams vehicle state decoded from the autopilot's heartbeat
// and position messages. Connection loss surfaces as link notifications,
// never as a crash; reconnects follow the shared bounded backoff policy.
package fcu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/skylark-uav/missiond/internal/geo"
	"github.com/skylark-uav/missiond/internal/link"
)

// gcsSystemID is the MAVLink system ID this program identifies as.
const gcsSystemID = 255

// ErrNotConnected is returned by command methods while the link is down.
var ErrNotConnected = errors.New("flight controller link not connected")

// VehicleState is one decoded snapshot of the vehicle, assembled from the
// autopilot's heartbeat and global position stream.
type VehicleState struct {
	Time     time.Time
	Position geo.Position // Alt is altitude above the launch point, meters
	Armed    bool
	Mode     string
}

// Rejection reports a command the autopilot refused, e.g. arm denied by a
// pre-arm check.
type Rejection struct {
	Command string
	Reason  string
}

// WithLogger sets the logger for the link.
func WithLogger(logger *slog.Logger) func(*Link) {
	return func(l *Link) {
		l.logger = logger.With(slog.String("link", string(link.FlightController)))
	}
}

// WithRetryPolicy sets the reconnect policy.
func WithRetryPolicy(policy link.Policy) func(*Link) {
	return func(l *Link) {
		l.policy = policy
	}
}

// Link owns the autopilot connection. Only Run touches the transport;
// command methods hand frames to the open node and state flows out on the
// channels passed to Run.
type Link struct {
	device string
	baud   int
	policy link.Policy
	logger *slog.Logger

	mu           sync.Mutex
	node         *gomavlib.Node
	targetSystem uint8
	armed        bool
	mode         string
	position     geo.Position
	havePosition bool
}

// New creates a link to the autopilot on the given serial device.
func New(device string, baud int, options ...func(*Link)) *Link {
	l := Link{
		device: device,
		baud:   baud,
		policy: link.DefaultPolicy,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&l)
	}

	return &l
}

// Run connects and streams vehicle state until the context is cancelled.
// Reconnects are bounded by the retry policy; exhausting it emits a fatal
// down notification and returns.
func (l *Link) Run(ctx context.Context, states chan<- VehicleState, rejects chan<- Rejection, notify chan<- link.Event) {
	attempt := 0
	for {
		node, err := l.connect()
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			attempt++
			l.logger.Warn(fmt.Sprintf("connecting to autopilot: %s", err),
				slog.Int("attempt", attempt))

			if l.policy.Exhausted(attempt) {
				sendEvent(ctx, notify, link.Down(link.FlightController, err, true))
				return
			}
			sendEvent(ctx, notify, link.Down(link.FlightController, err, false))

			if err = l.policy.Wait(ctx, attempt); err != nil {
				return
			}
			continue
		}

		attempt = 0
		l.setNode(node)
		l.logger.Info("autopilot link up", slog.String("device", l.device))
		sendEvent(ctx, notify, link.Up(link.FlightController))

		err = l.stream(ctx, node, states, rejects)
		l.setNode(nil)
		node.Close()

		if ctx.Err() != nil {
			return
		}

		l.logger.Warn(fmt.Sprintf("autopilot link lost: %s", err))
		sendEvent(ctx, notify, link.Down(link.FlightController, err, false))

		attempt++
		if l.policy.Exhausted(attempt) {
			sendEvent(ctx, notify, link.Down(link.FlightController, err, true))
			return
		}
		if err = l.policy.Wait(ctx, attempt); err != nil {
			return
		}
	}
}

func (l *Link) connect() (*gomavlib.Node, error) {
	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints: []gomavlib.EndpointConf{
			gomavlib.EndpointSerial{Device: l.device, Baud: l.baud},
		},
		Dialect:     common.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: gcsSystemID,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MAVLink node: %w", err)
	}
	return node, nil
}

// stream decodes autopilot events into vehicle state snapshots. The event
// channel closing means the underlying transport is gone; the caller
// reconnects. Not restartable on the same node.
func (l *Link) stream(ctx context.Context, node *gomavlib.Node, states chan<- VehicleState, rejects chan<- Rejection) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-node.Events():
			if !ok {
				return errors.New("event channel closed")
			}

			frame, ok := ev.(*gomavlib.EventFrame)
			if !ok {
				continue
			}

			switch msg := frame.Message().(type) {
			case *common.MessageHeartbeat:
				l.mu.Lock()
				l.targetSystem = frame.SystemID()
				l.armed = msg.BaseMode&common.MAV_MODE_FLAG_SAFETY_ARMED != 0
				l.mode = modeName(msg.CustomMode)
				state, ready := l.snapshotLocked()
				l.mu.Unlock()

				if ready {
					sendState(ctx, states, state)
				}

			case *common.MessageGlobalPositionInt:
				l.mu.Lock()
				l.position = geo.Position{
					Lat: float64(msg.Lat) / 1e7,
					Lon: float64(msg.Lon) / 1e7,
					Alt: float64(msg.RelativeAlt) / 1e3,
				}
				l.havePosition = true
				state, ready := l.snapshotLocked()
				l.mu.Unlock()

				if ready {
					sendState(ctx, states, state)
				}

			case *common.MessageCommandAck:
				if msg.Result == common.MAV_RESULT_ACCEPTED {
					continue
				}
				r := Rejection{
					Command: msg.Command.String(),
					Reason:  msg.Result.String(),
				}
				l.logger.Warn("command rejected",
					slog.String("command", r.Command), slog.String("reason", r.Reason))
				select {
				case rejects <- r:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// snapshotLocked builds a state snapshot; not ready until the first
// position fix has arrived.
func (l *Link) snapshotLocked() (VehicleState, bool) {
	if !l.havePosition {
		return VehicleState{}, false
	}
	return VehicleState{
		Time:     time.Now(),
		Position: l.position,
		Armed:    l.armed,
		Mode:     l.mode,
	}, true
}

func (l *Link) setNode(node *gomavlib.Node) {
	l.mu.Lock()
	l.node = node
	l.mu.Unlock()
}

func (l *Link) write(msg func(targetSystem uint8) message.Message) error {
	l.mu.Lock()
	node, target := l.node, l.targetSystem
	l.mu.Unlock()

	if node == nil {
		return ErrNotConnected
	}
	return node.WriteMessageAll(msg(target))
}

func sendState(ctx context.Context, states chan<- VehicleState, state VehicleState) {
	select {
	case states <- state:
	case <-ctx.Done():
	}
}

func sendEvent(ctx context.Context, notify chan<- link.Event, ev link.Event) {
	select {
	case notify <- ev:
	case <-ctx.Done():
	}
}
