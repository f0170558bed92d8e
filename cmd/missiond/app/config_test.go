package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testConfig = `
settings:
  logLevel: debug
flightController:
  device: /dev/ttyACM0
  baudRate: 115200
  retry:
    maxAttempts: 3
    backoffBase: 250ms
    backoffCap: 5s
sensor:
  socket: /tmp/sensors.sock
groundLink:
  device: /dev/ttyUSB0
mission:
  takeoffAltitude: 15
  telemetryInterval: 2s
storage:
  dataDirectory: flights
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	level, err := config.Settings.Level()
	if err != nil {
		t.Fatalf("Level: %v", err)
	}
	if level != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", level)
	}

	if config.FlightController.BaudRate != 115200 {
		t.Errorf("flight controller baud rate = %d, want 115200", config.FlightController.BaudRate)
	}
	if config.GroundLink.BaudRate != 57600 {
		t.Errorf("ground link baud rate = %d, want default 57600", config.GroundLink.BaudRate)
	}

	policy := config.FlightController.Retry.Policy()
	if policy.MaxAttempts != 3 || policy.BackoffBase != 250*time.Millisecond || policy.BackoffCap != 5*time.Second {
		t.Errorf("retry policy = %+v", policy)
	}

	params := config.Mission.Params()
	if params.TakeoffAltitude != 15 {
		t.Errorf("takeoff altitude = %v, want 15", params.TakeoffAltitude)
	}
	if params.MaxRadius != 250 {
		t.Errorf("max radius = %v, want default 250", params.MaxRadius)
	}
	if config.Mission.Interval() != 2*time.Second {
		t.Errorf("telemetry interval = %v, want 2s", config.Mission.Interval())
	}

	if config.Storage.DataDirectory != "flights" {
		t.Errorf("data directory = %q, want %q", config.Storage.DataDirectory, "flights")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, `
flightController:
  device: /dev/ttyACM0
sensor:
  socket: /tmp/sensors.sock
groundLink:
  device: /dev/ttyUSB0
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	level, err := config.Settings.Level()
	if err != nil {
		t.Fatalf("Level: %v", err)
	}
	if level != slog.LevelInfo {
		t.Errorf("log level = %v, want info", level)
	}
	if config.FlightController.BaudRate != 57600 {
		t.Errorf("baud rate = %d, want 57600", config.FlightController.BaudRate)
	}
	if config.Mission.Interval() != time.Second {
		t.Errorf("telemetry interval = %v, want 1s", config.Mission.Interval())
	}

	policy := config.Sensor.Retry.Policy()
	if policy.MaxAttempts != 5 {
		t.Errorf("sensor retry max attempts = %d, want default 5", policy.MaxAttempts)
	}
}

func TestLoadConfigMissingDevices(t *testing.T) {
	for name, content := range map[string]string{
		"flightController": "sensor:\n  socket: /tmp/s\ngroundLink:\n  device: /dev/ttyUSB0\n",
		"groundLink":       "flightController:\n  device: /dev/ttyACM0\nsensor:\n  socket: /tmp/s\n",
		"sensor":           "flightController:\n  device: /dev/ttyACM0\ngroundLink:\n  device: /dev/ttyUSB0\n",
	} {
		if _, err := LoadConfig(writeConfig(t, content)); err == nil {
			t.Errorf("LoadConfig without %s: expected error", name)
		}
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, `
flightController:
  device: /dev/ttyACM0
  retry:
    backoffBase: soon
sensor:
  socket: /tmp/s
groundLink:
  device: /dev/ttyUSB0
`)); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestRetryConfigZeroMaxAttemptsMeansForever(t *testing.T) {
	// maxAttempts: 0 is explicit and distinct from omitting the key.
	policy := RetryConfig{MaxAttempts: new(int)}.Policy()
	if policy.MaxAttempts != 0 {
		t.Errorf("max attempts = %d, want 0", policy.MaxAttempts)
	}
}
