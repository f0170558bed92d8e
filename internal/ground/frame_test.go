package ground

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecodeTelemetry(t *testing.T) {
	sampleTime := time.Date(2018, 3, 4, 18, 32, 36, 0, time.UTC)
	frame := TelemetryFrame(Telemetry{
		X:           12.5,
		Y:           -3.2,
		Z:           10,
		Temperature: 21.5,
		Latitude:    33.194044,
		Longitude:   -87.512971,
		FlightTime:  42.1,
		SampleTime:  sampleTime,
	})

	var buf bytes.Buffer
	if err := Encode(&buf, frame); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("encoded frame must be newline terminated")
	}

	got, err := Decode(bytes.TrimSpace(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Type != FrameTelemetry || got.Telemetry == nil {
		t.Fatalf("decoded frame = %+v, want telemetry frame", got)
	}
	if got.Telemetry.Temperature != 21.5 {
		t.Errorf("temperature = %v, want 21.5", got.Telemetry.Temperature)
	}
	if !got.Telemetry.SampleTime.Equal(sampleTime) {
		t.Errorf("sampleTime = %v, want %v", got.Telemetry.SampleTime, sampleTime)
	}
}

func TestDecodeWaypoints(t *testing.T) {
	line := []byte(`{"type":"waypoints","waypoints":[{"x":10,"y":20,"z":15},{"x":-5,"y":0,"z":10}]}`)

	f, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Type != FrameWaypoints {
		t.Fatalf("type = %q, want %q", f.Type, FrameWaypoints)
	}
	if len(f.Waypoints) != 2 {
		t.Fatalf("waypoints = %d, want 2", len(f.Waypoints))
	}
	if f.Waypoints[0] != (Offset{X: 10, Y: 20, Z: 15}) {
		t.Errorf("waypoint 0 = %+v", f.Waypoints[0])
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", "garbage"},
		{"missing type", `{"command":"abort"}`},
		{"empty object", `{}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode([]byte(tc.line)); err == nil {
				t.Errorf("Decode(%q) succeeded, want error", tc.line)
			}
		})
	}
}
