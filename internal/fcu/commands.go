package fcu

import (
	"math"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/skylark-uav/missiond/internal/geo"
)

// guidedMode is the ArduCopter GUIDED custom mode number. All motion
// commands require the vehicle to be in this mode.
const guidedMode = 4

// positionOnlyMask tells the autopilot to use only the position fields of a
// position target, ignoring velocity, acceleration, yaw and yaw rate.
const positionOnlyMask common.POSITION_TARGET_TYPEMASK = 0x0DF8

// copterModes maps ArduCopter custom mode numbers to their names.
var copterModes = map[uint32]string{
	0:  "STABILIZE",
	2:  "ALT_HOLD",
	3:  "AUTO",
	4:  "GUIDED",
	5:  "LOITER",
	6:  "RTL",
	9:  "LAND",
	16: "POSHOLD",
}

func modeName(customMode uint32) string {
	if name, ok := copterModes[customMode]; ok {
		return name
	}
	return "UNKNOWN"
}

// Arm puts the vehicle into guided mode and arms it. Repeating the command
// while armed is a protocol-level no-op.
func (l *Link) Arm() error {
	if err := l.write(setModeMessage); err != nil {
		return err
	}
	return l.write(armMessage)
}

// Takeoff commands a takeoff to the given altitude above the launch point.
func (l *Link) Takeoff(altitude float64) error {
	return l.write(func(target uint8) message.Message {
		return takeoffMessage(target, altitude)
	})
}

// Goto commands guided flight to the given position. It does not block;
// progress is observed on the state stream.
func (l *Link) Goto(p geo.Position) error {
	return l.write(func(target uint8) message.Message {
		return gotoMessage(target, p)
	})
}

// ReturnHome commands a return to the launch point.
func (l *Link) ReturnHome() error {
	return l.write(returnHomeMessage)
}

// Land commands a landing at the current position.
func (l *Link) Land() error {
	return l.write(landMessage)
}

func setModeMessage(target uint8) message.Message {
	return &common.MessageCommandLong{
		TargetSystem: target,
		Command:      common.MAV_CMD_DO_SET_MODE,
		Param1:       float32(common.MAV_MODE_FLAG_CUSTOM_MODE_ENABLED),
		Param2:       guidedMode,
	}
}

func armMessage(target uint8) message.Message {
	return &common.MessageCommandLong{
		TargetSystem: target,
		Command:      common.MAV_CMD_COMPONENT_ARM_DISARM,
		Param1:       1, // arm
	}
}

func takeoffMessage(target uint8, altitude float64) message.Message {
	return &common.MessageCommandLong{
		TargetSystem: target,
		Command:      common.MAV_CMD_NAV_TAKEOFF,
		Param7:       float32(altitude),
	}
}

func gotoMessage(target uint8, p geo.Position) message.Message {
	return &common.MessageSetPositionTargetGlobalInt{
		TargetSystem:    target,
		CoordinateFrame: common.MAV_FRAME_GLOBAL_RELATIVE_ALT_INT,
		TypeMask:        positionOnlyMask,
		LatInt:          int32(math.Round(p.Lat * 1e7)),
		LonInt:          int32(math.Round(p.Lon * 1e7)),
		Alt:             float32(p.Alt),
	}
}

func returnHomeMessage(target uint8) message.Message {
	return &common.MessageCommandLong{
		TargetSystem: target,
		Command:      common.MAV_CMD_NAV_RETURN_TO_LAUNCH,
	}
}

func landMessage(target uint8) message.Message {
	return &common.MessageCommandLong{
		TargetSystem: target,
		Command:      common.MAV_CMD_NAV_LAND,
	}
}
