package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/skylark-uav/missiond/internal/fcu"
	"github.com/skylark-uav/missiond/internal/flightlog"
	"github.com/skylark-uav/missiond/internal/ground"
	"github.com/skylark-uav/missiond/internal/mission"
	"github.com/skylark-uav/missiond/internal/sensor"
)

const storageDir = "data"

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create flight log: %w", err)
	}
	defer store.Close()

	sessionID, err := store.CreateSession(ctx, config.FlightController.Device, config.Mission)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	fcuLink := fcu.New(config.FlightController.Device, config.FlightController.BaudRate,
		fcu.WithLogger(logger),
		fcu.WithRetryPolicy(config.FlightController.Retry.Policy()))

	sensors := sensor.New(config.Sensor.Socket,
		sensor.WithLogger(logger),
		sensor.WithRetryPolicy(config.Sensor.Retry.Policy()))

	radio := ground.New(config.GroundLink.Device, config.GroundLink.BaudRate,
		ground.WithLogger(logger),
		ground.WithRetryPolicy(config.GroundLink.Retry.Policy()))

	coordinator := mission.New(config.Mission.Params(), mission.WithLogger(logger))

	orchestrator := NewOrchestrator(coordinator, fcuLink, sensors, radio, logger,
		WithFlightLog(store, sessionID),
		WithTelemetryInterval(config.Mission.Interval()))

	return orchestrator.Run(ctx)
}

func createStorage(config *StorageConfig) (*flightlog.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	var dbPath string
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	} else {
		dbPath = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("checking storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("flight_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return flightlog.New(dbPath), nil
}
