package fcu

import (
	"testing"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/skylark-uav/missiond/internal/geo"
)

func TestModeName(t *testing.T) {
	tests := []struct {
		mode uint32
		want string
	}{
		{4, "GUIDED"},
		{6, "RTL"},
		{9, "LAND"},
		{77, "UNKNOWN"},
	}
	for _, tc := range tests {
		if got := modeName(tc.mode); got != tc.want {
			t.Errorf("modeName(%d) = %q, want %q", tc.mode, got, tc.want)
		}
	}
}

func TestArmMessage(t *testing.T) {
	msg, ok := armMessage(1).(*common.MessageCommandLong)
	if !ok {
		t.Fatal("armMessage did not build a COMMAND_LONG")
	}
	if msg.Command != common.MAV_CMD_COMPONENT_ARM_DISARM {
		t.Errorf("command = %v, want ARM_DISARM", msg.Command)
	}
	if msg.Param1 != 1 {
		t.Errorf("param1 = %v, want 1 (arm)", msg.Param1)
	}
	if msg.TargetSystem != 1 {
		t.Errorf("target system = %d, want 1", msg.TargetSystem)
	}
}

func TestTakeoffMessageCarriesAltitude(t *testing.T) {
	msg := takeoffMessage(1, 10).(*common.MessageCommandLong)
	if msg.Command != common.MAV_CMD_NAV_TAKEOFF {
		t.Errorf("command = %v, want NAV_TAKEOFF", msg.Command)
	}
	if msg.Param7 != 10 {
		t.Errorf("param7 = %v, want 10", msg.Param7)
	}
}

func TestGotoMessageScalesCoordinates(t *testing.T) {
	p := geo.Position{Lat: 33.194044, Lon: -87.512971, Alt: 15}
	msg := gotoMessage(1, p).(*common.MessageSetPositionTargetGlobalInt)

	if msg.LatInt != 331940440 {
		t.Errorf("LatInt = %d, want 331940440", msg.LatInt)
	}
	if msg.LonInt != -875129710 {
		t.Errorf("LonInt = %d, want -875129710", msg.LonInt)
	}
	if msg.Alt != 15 {
		t.Errorf("Alt = %v, want 15", msg.Alt)
	}
	if msg.CoordinateFrame != common.MAV_FRAME_GLOBAL_RELATIVE_ALT_INT {
		t.Errorf("frame = %v, want GLOBAL_RELATIVE_ALT_INT", msg.CoordinateFrame)
	}
	if msg.TypeMask != positionOnlyMask {
		t.Errorf("type mask = %#x, want %#x", msg.TypeMask, positionOnlyMask)
	}
}

func TestCommandsWhileDisconnected(t *testing.T) {
	l := New("/dev/null", 57600)

	if err := l.Arm(); err != ErrNotConnected {
		t.Errorf("Arm while down = %v, want ErrNotConnected", err)
	}
	if err := l.Goto(geo.Position{}); err != ErrNotConnected {
		t.Errorf("Goto while down = %v, want ErrNotConnected", err)
	}
	if err := l.Land(); err != ErrNotConnected {
		t.Errorf("Land while down = %v, want ErrNotConnected", err)
	}
}
