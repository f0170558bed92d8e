// Package geo provides the small-area GPS arithmetic used for waypoint
// planning: offsetting a position by meters, distance between positions and
// the inverse relative-offset calculation. The math assumes a spherical
// earth and short distances, which is fine for a mission geofenced to a few
// hundred meters.
package geo

import "math"

// earthRadius is the average radius of a spherical earth in meters.
const earthRadius = 6371001.0

// metersPerDegree is the approximate surface distance covered by one degree
// of latitude. Longitude error grows away from the equator, but within the
// geofence radius the approximation holds.
const metersPerDegree = 1.113195e5

// Position is a global position with altitude in meters relative to the
// launch point.
type Position struct {
	Lat float64
	Lon float64
	Alt float64
}

// Offset returns the position reached by moving north and east (meters) from
// origin. Negative values move south and west. Altitude is carried over
// unchanged.
func Offset(origin Position, north, east float64) Position {
	latOffset := north / earthRadius
	lonOffset := east / (earthRadius * math.Cos(math.Pi*origin.Lat/180))

	return Position{
		Lat: origin.Lat + latOffset*180/math.Pi,
		Lon: origin.Lon + lonOffset*180/math.Pi,
		Alt: origin.Alt,
	}
}

// RelativeTo returns the (east, north) offsets in meters of p relative to
// origin. It is the inverse of Offset.
func RelativeTo(origin, p Position) (east, north float64) {
	lonOffset := (p.Lon - origin.Lon) * (math.Pi / 180)
	latOffset := (p.Lat - origin.Lat) * (math.Pi / 180)

	east = lonOffset * (earthRadius * math.Cos(math.Pi*origin.Lat/180))
	north = latOffset * earthRadius
	return east, north
}

// Distance returns the ground distance in meters between two positions.
// Altitude is ignored.
func Distance(a, b Position) float64 {
	latDiff := a.Lat - b.Lat
	lonDiff := a.Lon - b.Lon
	return math.Sqrt(latDiff*latDiff+lonDiff*lonDiff) * metersPerDegree
}
