// Package link holds the concerns shared by all three external link
// adapters: link identity, up/down notifications and the bounded
// reconnect policy.
package link

// ID identifies one of the external links.
type ID string

const (
	FlightController ID = "fcu"
	Sensor           ID = "sensor"
	Ground           ID = "ground"
)

// Event is a link state notification emitted by an adapter. A Down event
// with Fatal set means the adapter has exhausted its reconnect budget and
// will not recover.
type Event struct {
	Link  ID
	Up    bool
	Fatal bool
	Err   error
}

// Down returns a down notification for the given link.
func Down(id ID, err error, fatal bool) Event {
	return Event{Link: id, Err: err, Fatal: fatal}
}

// Up returns an up notification for the given link.
func Up(id ID) Event {
	return Event{Link: id, Up: true}
}
