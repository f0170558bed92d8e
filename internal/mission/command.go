package mission

import (
	"github.com/skylark-uav/missiond/internal/geo"
	"github.com/skylark-uav/missiond/internal/ground"
)

// Command is an output of the coordinator, dispatched by the caller to the
// flight controller link or the ground transport.
type Command interface {
	command()
}

// Arm sets guided mode and arms the vehicle.
type Arm struct{}

// Takeoff climbs to the given altitude above the launch point.
type Takeoff struct {
	Altitude float64
}

// Goto flies to the given position.
type Goto struct {
	Target geo.Position
}

// ReturnHome returns to the launch point.
type ReturnHome struct{}

// Land lands at the current position.
type Land struct{}

// Transmit sends a frame over the ground link, best effort.
type Transmit struct {
	Frame ground.Frame
}

func (Arm) command()        {}
func (Takeoff) command()    {}
func (Goto) command()       {}
func (ReturnHome) command() {}
func (Land) command()       {}
func (Transmit) command()   {}
