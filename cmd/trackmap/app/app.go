package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/skylark-uav/missiond/internal/flightlog"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := flightlog.New(config.DBPath)
	defer store.Close()

	return renderTrack(ctx, store, config, logger)
}

func renderTrack(ctx context.Context, store *flightlog.Store, config *Config, logger *slog.Logger) error {
	session, err := store.Session(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("session %d not found", config.SessionID)
	}

	track, err := store.ReadTrack(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("reading track: %w", err)
	}
	events, err := store.ReadEvents(ctx, config.SessionID)
	if err != nil {
		return fmt.Errorf("reading events: %w", err)
	}

	data := NewTrackData(track, events)

	logger.Info("finished reading track",
		slog.Group("stats",
			slog.String("vehicle", session.Vehicle),
			slog.String("start", data.Start.Local().Format(time.DateTime)),
			slog.String("end", data.End.Local().Format(time.DateTime)),
			slog.Int("points", len(data.Points)),
			slog.Int("events", len(data.Events)),
			slog.String("distance", fmt.Sprintf("%0.1fm", data.Distance)),
		))

	logger.Info("rendering track map",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.Int("width", config.Width),
		))

	img, err := NewTrackRenderer(config).Render(data)
	if err != nil {
		return fmt.Errorf("rendering track map: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}
