// Package ground implements the point-to-point radio link to the ground
// station. Frames are small JSON objects, one per line, written to an
// XBee-class serial radio. The channel is lossy and no retransmission
// happens here: the next periodic telemetry frame supersedes a lost one.
package ground

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

const (
	FrameTelemetry FrameType = "telemetry"
	FrameStatus    FrameType = "status"
	FrameWaypoints FrameType = "waypoints"
	FrameCommand   FrameType = "command"
)

// FrameType discriminates the fixed frame formats on the radio channel.
type FrameType string

// Frame is the unit of exchange with the ground station. Exactly one of the
// payload fields is set, matching Type.
type Frame struct {
	Type      FrameType  `json:"type"`
	Telemetry *Telemetry `json:"telemetry,omitempty"`
	Status    *Status    `json:"status,omitempty"`
	Waypoints []Offset   `json:"waypoints,omitempty"`
	Command   string     `json:"command,omitempty"`
}

// Telemetry is the outbound periodic report. Field names are the ground
// station's contract: x/y are east/north offsets in meters from the launch
// point, time is seconds since the mission went en route, and sampleTime is
// the timestamp of the sensor sample being reported (unchanged when a stale
// sample is retransmitted).
type Telemetry struct {
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Z           float64   `json:"z"`
	Temperature float64   `json:"temp"`
	Latitude    float64   `json:"lat"`
	Longitude   float64   `json:"lon"`
	FlightTime  float64   `json:"time"`
	SampleTime  time.Time `json:"sampleTime"`
}

// Status is an outbound human-readable progress or fault report.
type Status struct {
	Text  string `json:"text"`
	State string `json:"state"`
}

// Offset is an inbound waypoint expressed as meters from the launch point:
// X positive east, Y positive north, Z altitude.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// StatusFrame builds a status frame.
func StatusFrame(text, state string) Frame {
	return Frame{Type: FrameStatus, Status: &Status{Text: text, State: state}}
}

// TelemetryFrame builds a telemetry frame.
func TelemetryFrame(t Telemetry) Frame {
	return Frame{Type: FrameTelemetry, Telemetry: &t}
}

// Encode writes one frame as a JSON line.
func Encode(w io.Writer, f Frame) error {
	p, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	p = append(p, '\n')
	if _, err = w.Write(p); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Decode parses one JSON line into a frame.
func Decode(line []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return Frame{}, fmt.Errorf("decoding frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("decoding frame: missing type")
	}
	return f, nil
}

// NewScanner returns a line scanner over the radio stream.
func NewScanner(r io.Reader) *bufio.Scanner {
	return bufio.NewScanner(r)
}
