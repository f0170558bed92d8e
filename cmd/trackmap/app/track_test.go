package app

import (
	"math"
	"testing"
	"time"

	"github.com/skylark-uav/missiond/internal/flightlog"
	"github.com/skylark-uav/missiond/internal/geo"
)

func TestNewTrackData(t *testing.T) {
	home := geo.Position{Lat: 33.1940, Lon: -87.5129, Alt: 0}
	base := time.Date(2018, 3, 4, 18, 32, 36, 0, time.UTC)

	track := []flightlog.TrackPoint{
		{Timestamp: base, Position: home},
		{Timestamp: base.Add(5 * time.Second), Position: geo.Offset(home, 30, 0)},
		{Timestamp: base.Add(10 * time.Second), Position: geo.Offset(home, 30, 40)},
	}
	track[1].Position.Alt = 10
	track[2].Position.Alt = 10

	data := NewTrackData(track, []flightlog.Event{
		{Timestamp: base, State: "Armed"},
		{Timestamp: base.Add(12 * time.Second), State: "Landed"},
	})

	if len(data.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(data.Points))
	}
	if data.Points[0].East != 0 || data.Points[0].North != 0 {
		t.Errorf("first point = (%v, %v), want origin", data.Points[0].East, data.Points[0].North)
	}
	if math.Abs(data.Points[2].North-30) > 1 || math.Abs(data.Points[2].East-40) > 1 {
		t.Errorf("last point = (%v, %v), want about (40, 30)", data.Points[2].East, data.Points[2].North)
	}

	// Two legs of about 30m and 40m.
	if math.Abs(data.Distance-70) > 10 {
		t.Errorf("distance = %v, want about 70", data.Distance)
	}

	if data.MaxAlt != 10 || data.MinAlt != 0 {
		t.Errorf("altitude range = [%v, %v], want [0, 10]", data.MinAlt, data.MaxAlt)
	}
	if !data.End.Equal(base.Add(10 * time.Second)) {
		t.Errorf("end = %v", data.End)
	}
	if data.FinalState() != "Landed" {
		t.Errorf("final state = %q, want Landed", data.FinalState())
	}
}

func TestNewTrackDataEmpty(t *testing.T) {
	data := NewTrackData(nil, nil)
	if len(data.Points) != 0 || data.Distance != 0 {
		t.Errorf("empty track data = %+v", data)
	}
	if data.FinalState() != "" {
		t.Errorf("final state = %q, want empty", data.FinalState())
	}
}

func TestProjection(t *testing.T) {
	config := NewConfig()
	data := NewTrackData([]flightlog.TrackPoint{
		{Position: geo.Position{Lat: 33.1940, Lon: -87.5129}},
		{Position: geo.Offset(geo.Position{Lat: 33.1940, Lon: -87.5129}, 100, 100)},
	}, nil)

	proj := NewTrackRenderer(config).project(data)
	if proj.Scale <= 0 {
		t.Fatalf("scale = %v", proj.Scale)
	}

	// The origin maps to the bottom-left corner of the drawable area, the
	// far point to the top-right.
	x0, y0 := proj.toPixel(0, 0)
	x1, y1 := proj.toPixel(data.MaxEast, data.MaxNorth)
	if x0 != proj.Area.Min.X || y0 != proj.Area.Max.Y {
		t.Errorf("origin pixel = (%d, %d), want (%d, %d)", x0, y0, proj.Area.Min.X, proj.Area.Max.Y)
	}
	if x1 != proj.Area.Max.X || y1 != proj.Area.Min.Y {
		t.Errorf("far pixel = (%d, %d), want (%d, %d)", x1, y1, proj.Area.Max.X, proj.Area.Min.Y)
	}
}
