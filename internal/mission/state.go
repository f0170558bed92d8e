// Package mission implements the mission coordinator: a single-threaded
// state machine that consumes events from the three link adapters and the
// telemetry ticker, and emits the commands that drive the flight. Advance
// performs no I/O; dispatching the returned commands is the caller's job.
package mission

// State is the mission phase. Transitions run forward along the documented
// sequence; Faulted is an absorbing state reachable from anywhere on
// unrecoverable link loss or command rejection.
type State int

const (
	Idle State = iota
	AwaitingWaypoints
	Armed
	TakingOff
	EnRoute
	ReturningHome
	Landing
	Landed
	Faulted
)

var stateNames = map[State]string{
	Idle:              "Idle",
	AwaitingWaypoints: "AwaitingWaypoints",
	Armed:             "Armed",
	TakingOff:         "TakingOff",
	EnRoute:           "EnRoute",
	ReturningHome:     "ReturningHome",
	Landing:           "Landing",
	Landed:            "Landed",
	Faulted:           "Faulted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Terminal reports whether the mission can make no further progress.
func (s State) Terminal() bool {
	return s == Landed || s == Faulted
}

// Airborne reports whether the vehicle is expected to be off the ground.
func (s State) Airborne() bool {
	switch s {
	case TakingOff, EnRoute, ReturningHome, Landing:
		return true
	}
	return false
}

// Active reports whether a mission is underway, which is when periodic
// telemetry is transmitted.
func (s State) Active() bool {
	switch s {
	case Armed, TakingOff, EnRoute, ReturningHome, Landing:
		return true
	}
	return false
}
