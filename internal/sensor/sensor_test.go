package sensor

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/skylark-uav/missiond/internal/link"
)

func fastPolicy() link.Policy {
	return link.Policy{BackoffBase: time.Millisecond, BackoffCap: time.Millisecond}
}

// pipeDialer returns a dialer whose connections are served by the given
// handler, simulating the sensor service.
func pipeDialer(handler func(conn net.Conn)) func(ctx context.Context) (net.Conn, error) {
	return func(ctx context.Context) (net.Conn, error) {
		client, server := net.Pipe()
		go handler(server)
		return client, nil
	}
}

func TestSubscriberForwardsSamples(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New("unused.sock", WithRetryPolicy(fastPolicy()))
	s.dial = pipeDialer(func(conn net.Conn) {
		defer conn.Close()
		conn.Write([]byte(`{"timestamp":"2018-03-04T18:32:36Z","temperature":21.5,"altitude":85.4}` + "\n"))
		conn.Write([]byte("\n")) // blank line, ignored
		conn.Write([]byte(`{"timestamp":"2018-03-04T18:32:37Z","temperature":21.6,"altitude":85.5}` + "\n"))
		<-ctx.Done()
	})

	samples := make(chan Sample, 4)
	notify := make(chan link.Event, 4)
	go s.Run(ctx, samples, notify)

	if ev := <-notify; !ev.Up || ev.Link != link.Sensor {
		t.Fatalf("expected sensor up event, got %+v", ev)
	}

	first := <-samples
	if first.Temperature != 21.5 {
		t.Errorf("first sample temperature = %v, want 21.5", first.Temperature)
	}
	want := time.Date(2018, 3, 4, 18, 32, 36, 0, time.UTC)
	if !first.Timestamp.Equal(want) {
		t.Errorf("first sample timestamp = %v, want %v", first.Timestamp, want)
	}

	second := <-samples
	if second.Temperature != 21.6 {
		t.Errorf("second sample temperature = %v, want 21.6", second.Temperature)
	}
}

func TestSubscriberDropsMalformedLines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New("unused.sock", WithRetryPolicy(fastPolicy()))
	s.dial = pipeDialer(func(conn net.Conn) {
		defer conn.Close()
		conn.Write([]byte("not json at all\n"))
		conn.Write([]byte(`{"timestamp":"2018-03-04T18:32:36Z","temperature":19.0,"altitude":12}` + "\n"))
		<-ctx.Done()
	})

	samples := make(chan Sample, 4)
	notify := make(chan link.Event, 4)
	go s.Run(ctx, samples, notify)

	got := <-samples
	if got.Temperature != 19.0 {
		t.Errorf("sample after malformed line temperature = %v, want 19.0", got.Temperature)
	}
}

func TestSubscriberResubscribesAfterReset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connections := 0
	s := New("unused.sock", WithRetryPolicy(fastPolicy()))
	s.dial = func(dialCtx context.Context) (net.Conn, error) {
		connections++
		client, server := net.Pipe()
		n := connections
		go func() {
			defer server.Close()
			if n == 1 {
				// first subscription dies immediately after one sample
				server.Write([]byte(`{"timestamp":"2018-03-04T18:32:36Z","temperature":1,"altitude":0}` + "\n"))
				return
			}
			server.Write([]byte(`{"timestamp":"2018-03-04T18:32:40Z","temperature":2,"altitude":0}` + "\n"))
			<-ctx.Done()
		}()
		return client, nil
	}

	samples := make(chan Sample, 4)
	notify := make(chan link.Event, 8)
	go s.Run(ctx, samples, notify)

	if got := <-samples; got.Temperature != 1 {
		t.Fatalf("first sample temperature = %v, want 1", got.Temperature)
	}
	if got := <-samples; got.Temperature != 2 {
		t.Fatalf("sample after resubscribe temperature = %v, want 2", got.Temperature)
	}

	sawDown := false
	for done := false; !done; {
		select {
		case ev := <-notify:
			if !ev.Up {
				if ev.Fatal {
					t.Error("sensor down events must never be fatal")
				}
				sawDown = true
				done = true
			}
		case <-time.After(time.Second):
			done = true
		}
	}
	if !sawDown {
		t.Error("expected a non-fatal down event between subscriptions")
	}
}
