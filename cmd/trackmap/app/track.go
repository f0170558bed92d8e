package app

import (
	"time"

	"github.com/skylark-uav/missiond/internal/flightlog"
	"github.com/skylark-uav/missiond/internal/geo"
)

// trackPoint is one recorded sample projected onto the local tangent plane
// around the first recorded position, east and north in metres.
type trackPoint struct {
	East  float64
	North float64
	Alt   float64
}

// TrackData holds a flown track prepared for rendering.
type TrackData struct {
	Points []trackPoint
	Events []flightlog.Event

	Start time.Time
	End   time.Time

	Distance float64 // metres flown along the track

	MinEast  float64
	MaxEast  float64
	MinNorth float64
	MaxNorth float64
	MinAlt   float64
	MaxAlt   float64
}

// NewTrackData projects the track around its first point and computes the
// extents and the total distance flown.
func NewTrackData(track []flightlog.TrackPoint, events []flightlog.Event) *TrackData {
	data := TrackData{Events: events}
	if len(track) == 0 {
		return &data
	}

	origin := track[0].Position
	data.Start = track[0].Timestamp
	data.End = track[len(track)-1].Timestamp
	data.MinAlt = origin.Alt
	data.MaxAlt = origin.Alt

	for i, p := range track {
		east, north := geo.RelativeTo(origin, p.Position)
		data.Points = append(data.Points, trackPoint{East: east, North: north, Alt: p.Position.Alt})

		if i > 0 {
			data.Distance += geo.Distance(track[i-1].Position, p.Position)
		}

		data.MinEast = min(data.MinEast, east)
		data.MaxEast = max(data.MaxEast, east)
		data.MinNorth = min(data.MinNorth, north)
		data.MaxNorth = max(data.MaxNorth, north)
		data.MinAlt = min(data.MinAlt, p.Position.Alt)
		data.MaxAlt = max(data.MaxAlt, p.Position.Alt)
	}

	return &data
}

// FinalState returns the state of the last recorded mission event, or an
// empty string when no events were recorded.
func (d *TrackData) FinalState() string {
	if len(d.Events) == 0 {
		return ""
	}
	return d.Events[len(d.Events)-1].State
}
