package ground

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.bug.st/serial"

	"github.com/skylark-uav/missiond/internal/link"
)

// ErrNotConnected is returned by Send while the radio is down.
var ErrNotConnected = errors.New("ground link not connected")

// WithLogger sets the logger for the transport.
func WithLogger(logger *slog.Logger) func(*Transport) {
	return func(t *Transport) {
		t.logger = logger.With(slog.String("link", string(link.Ground)))
	}
}

// WithRetryPolicy sets the reconnect policy for the radio port.
func WithRetryPolicy(policy link.Policy) func(*Transport) {
	return func(t *Transport) {
		t.policy = policy
	}
}

// Transport owns the radio serial port. Send is best-effort: a frame that
// cannot be written is dropped and the caller is expected to resend current
// state on the next tick rather than retry the frame.
type Transport struct {
	device string
	baud   int
	policy link.Policy
	logger *slog.Logger

	// open is swappable in tests
	open func() (io.ReadWriteCloser, error)

	mu   sync.Mutex
	port io.ReadWriteCloser
}

// New creates a transport for the radio at the given serial device.
func New(device string, baud int, options ...func(*Transport)) *Transport {
	t := Transport{
		device: device,
		baud:   baud,
		policy: link.DefaultPolicy,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	t.open = func() (io.ReadWriteCloser, error) {
		return serial.Open(t.device, &serial.Mode{BaudRate: t.baud})
	}

	for _, option := range options {
		option(&t)
	}

	return &t
}

// Send transmits one frame. No delivery guarantee: an I/O error closes the
// port (Run will reconnect) and the frame is lost.
func (t *Transport) Send(f Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return ErrNotConnected
	}
	if err := Encode(t.port, f); err != nil {
		return err
	}
	return nil
}

// Run opens the radio and reads inbound frames until the context is
// cancelled, reconnecting with bounded backoff. Once the attempt budget is
// exhausted a fatal down notification is emitted and Run returns.
func (t *Transport) Run(ctx context.Context, inbound chan<- Frame, notify chan<- link.Event) {
	attempt := 0
	for {
		port, err := t.open()
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			attempt++
			t.logger.Warn(fmt.Sprintf("opening radio: %s", err), slog.Int("attempt", attempt))

			if t.policy.Exhausted(attempt) {
				sendEvent(ctx, notify, link.Down(link.Ground, err, true))
				return
			}
			sendEvent(ctx, notify, link.Down(link.Ground, err, false))

			if err = t.policy.Wait(ctx, attempt); err != nil {
				return
			}
			continue
		}

		attempt = 0
		t.setPort(port)
		t.logger.Info("radio link up", slog.String("device", t.device))
		sendEvent(ctx, notify, link.Up(link.Ground))

		err = t.receive(ctx, port, inbound)
		t.setPort(nil)
		_ = port.Close()

		if ctx.Err() != nil {
			return
		}

		t.logger.Warn(fmt.Sprintf("radio link lost: %s", err))
		sendEvent(ctx, notify, link.Down(link.Ground, err, false))

		attempt++
		if err = t.policy.Wait(ctx, attempt); err != nil {
			return
		}
	}
}

// receive reads line frames until the port breaks. Malformed frames are
// dropped; the radio is noisy and a corrupt line has no mission impact.
func (t *Transport) receive(ctx context.Context, port io.ReadWriteCloser, inbound chan<- Frame) error {
	go func() {
		<-ctx.Done()
		_ = port.Close()
	}()

	scanner := NewScanner(port)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		f, err := Decode(line)
		if err != nil {
			t.logger.Warn(fmt.Sprintf("dropping inbound frame: %s", err),
				slog.String("line", string(line)))
			continue
		}

		select {
		case inbound <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

func (t *Transport) setPort(port io.ReadWriteCloser) {
	t.mu.Lock()
	t.port = port
	t.mu.Unlock()
}

func sendEvent(ctx context.Context, notify chan<- link.Event, ev link.Event) {
	select {
	case notify <- ev:
	case <-ctx.Done():
	}
}
