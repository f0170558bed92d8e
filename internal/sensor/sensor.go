// Package sensor subscribes to the local sensor service over its
// unix-domain socket. The service pushes one JSON object per line as
// readings become available; the subscriber forwards them and resubscribes
// with backoff whenever the socket resets. Losing this feed never fails the
// mission, so the subscriber retries for as long as its context lives.
package sensor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/skylark-uav/missiond/internal/link"
)

// Sample is one reading pushed by the sensor service. The field names are
// the service's framing contract.
type Sample struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Altitude    float64   `json:"altitude"`
}

// WithLogger sets the logger for the subscriber.
func WithLogger(logger *slog.Logger) func(*Subscriber) {
	return func(s *Subscriber) {
		s.logger = logger.With(slog.String("link", string(link.Sensor)))
	}
}

// WithRetryPolicy sets the resubscribe backoff policy. MaxAttempts is
// ignored: sensor loss is non-fatal and the subscriber retries forever.
func WithRetryPolicy(policy link.Policy) func(*Subscriber) {
	return func(s *Subscriber) {
		s.policy = policy
	}
}

// Subscriber owns the sensor service connection. Only Run touches the
// socket; consumers see samples and link notifications on the channels
// passed to Run.
type Subscriber struct {
	socket string
	policy link.Policy
	logger *slog.Logger

	// dial is swappable in tests
	dial func(ctx context.Context) (net.Conn, error)
}

// New creates a subscriber for the sensor service at the given unix socket
// path.
func New(socket string, options ...func(*Subscriber)) *Subscriber {
	s := Subscriber{
		socket: socket,
		policy: link.DefaultPolicy,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	s.dial = func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", s.socket)
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Run subscribes and forwards samples until the context is cancelled.
// Disconnects are reported on notify as non-fatal downs followed by an up
// once resubscribed. Run never returns a connection error; it only returns
// once the context is done.
func (s *Subscriber) Run(ctx context.Context, samples chan<- Sample, notify chan<- link.Event) {
	attempt := 0
	for {
		conn, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			attempt++
			s.logger.Warn(fmt.Sprintf("subscribe failed: %s", err),
				slog.Int("attempt", attempt))
			sendEvent(ctx, notify, link.Down(link.Sensor, err, false))

			if err = s.policy.Wait(ctx, attempt); err != nil {
				return
			}
			continue
		}

		attempt = 0
		s.logger.Info("subscribed to sensor feed")
		sendEvent(ctx, notify, link.Up(link.Sensor))

		err = s.consume(ctx, conn, samples)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		s.logger.Warn(fmt.Sprintf("sensor feed reset: %s", err))
		sendEvent(ctx, notify, link.Down(link.Sensor, err, false))

		attempt++
		if err = s.policy.Wait(ctx, attempt); err != nil {
			return
		}
	}
}

// consume reads line-framed samples until the connection breaks or the
// context is cancelled. Malformed lines are logged and dropped; they carry
// no mission impact.
func (s *Subscriber) consume(ctx context.Context, conn net.Conn, samples chan<- Sample) error {
	go func() {
		// Unblock the scanner when the context ends.
		<-ctx.Done()
		_ = conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var sample Sample
		if err := json.Unmarshal(line, &sample); err != nil {
			s.logger.Warn(fmt.Sprintf("dropping malformed sample: %s", err),
				slog.String("line", string(line)))
			continue
		}

		select {
		case samples <- sample:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

func sendEvent(ctx context.Context, notify chan<- link.Event, ev link.Event) {
	select {
	case notify <- ev:
	case <-ctx.Done():
	}
}
