package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skylark-uav/missiond/internal/link"
	"github.com/skylark-uav/missiond/internal/mission"
)

// Duration wraps time.Duration for yaml values like "500ms" or "1s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration '%s': %w", s, err)
	}

	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the main application configuration
type Config struct {
	Settings         Settings         `yaml:"settings"`
	FlightController SerialLinkConfig `yaml:"flightController"`
	Sensor           SensorConfig     `yaml:"sensor"`
	GroundLink       SerialLinkConfig `yaml:"groundLink"`
	Mission          MissionConfig    `yaml:"mission"`
	Storage          StorageConfig    `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level parses the configured log level, defaulting to info.
func (s Settings) Level() (slog.Level, error) {
	if s.LogLevel == "" {
		return slog.LevelInfo, nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("parsing log level '%s': %w", s.LogLevel, err)
	}
	return level, nil
}

// SerialLinkConfig represents a serial-attached link (the autopilot or the
// ground radio).
type SerialLinkConfig struct {
	Device   string      `yaml:"device"`
	BaudRate int         `yaml:"baudRate"`
	Retry    RetryConfig `yaml:"retry"`
}

// SensorConfig represents the sensor service subscription.
type SensorConfig struct {
	Socket string      `yaml:"socket"`
	Retry  RetryConfig `yaml:"retry"`
}

// RetryConfig represents a link reconnect policy. Zero values fall back to
// the defaults; maxAttempts 0 means retry forever.
type RetryConfig struct {
	MaxAttempts *int     `yaml:"maxAttempts"`
	BackoffBase Duration `yaml:"backoffBase"`
	BackoffCap  Duration `yaml:"backoffCap"`
}

// Policy converts the configuration into a link retry policy.
func (r RetryConfig) Policy() link.Policy {
	p := link.DefaultPolicy
	if r.MaxAttempts != nil {
		p.MaxAttempts = *r.MaxAttempts
	}
	if r.BackoffBase > 0 {
		p.BackoffBase = r.BackoffBase.Std()
	}
	if r.BackoffCap > 0 {
		p.BackoffCap = r.BackoffCap.Std()
	}
	return p
}

// MissionConfig represents the mission limits and cadences. Omitted values
// take the stock defaults.
type MissionConfig struct {
	TakeoffAltitude   float64  `yaml:"takeoffAltitude"`
	WaypointTolerance float64  `yaml:"waypointTolerance"`
	AltitudeTolerance float64  `yaml:"altitudeTolerance"`
	TelemetryInterval Duration `yaml:"telemetryInterval"`
	MaxRadius         float64  `yaml:"maxRadius"`
	MaxAltitude       float64  `yaml:"maxAltitude"`
	MinAltitude       float64  `yaml:"minAltitude"`
	GeofenceSlack     float64  `yaml:"geofenceSlack"`
}

// Params converts the configuration into mission parameters, applying the
// stock defaults to omitted values.
func (m MissionConfig) Params() mission.Params {
	p := mission.DefaultParams()
	if m.TakeoffAltitude > 0 {
		p.TakeoffAltitude = m.TakeoffAltitude
	}
	if m.WaypointTolerance > 0 {
		p.WaypointTolerance = m.WaypointTolerance
	}
	if m.AltitudeTolerance > 0 {
		p.AltitudeTolerance = m.AltitudeTolerance
	}
	if m.MaxRadius > 0 {
		p.MaxRadius = m.MaxRadius
	}
	if m.MaxAltitude > 0 {
		p.MaxAltitude = m.MaxAltitude
	}
	if m.MinAltitude > 0 {
		p.MinAltitude = m.MinAltitude
	}
	if m.GeofenceSlack > 0 {
		p.GeofenceSlack = m.GeofenceSlack
	}
	return p
}

// Interval returns the telemetry cadence, defaulting to one second.
func (m MissionConfig) Interval() time.Duration {
	if m.TelemetryInterval > 0 {
		return m.TelemetryInterval.Std()
	}
	return time.Second
}

// StorageConfig represents flight log storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
}

// LoadConfig reads and validates the configuration file.
func LoadConfig(path string) (*Config, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(p, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration file: %w", err)
	}

	if config.FlightController.Device == "" {
		return nil, fmt.Errorf("flightController.device is required")
	}
	if config.GroundLink.Device == "" {
		return nil, fmt.Errorf("groundLink.device is required")
	}
	if config.Sensor.Socket == "" {
		return nil, fmt.Errorf("sensor.socket is required")
	}

	if config.FlightController.BaudRate == 0 {
		config.FlightController.BaudRate = 57600
	}
	if config.GroundLink.BaudRate == 0 {
		config.GroundLink.BaudRate = 57600
	}

	if _, err = config.Settings.Level(); err != nil {
		return nil, err
	}

	return &config, nil
}
