// Package flightlog records each mission run in a local sqlite database:
// the session, every transmitted telemetry frame and every mission event.
// The log is the post-flight record the trackmap tool renders from.
package flightlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store handles flight log database operations. Writes are atomic per
// record; the write and read connections are opened lazily and
// independently so the renderer can open a log read-only.
type Store struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New creates a store for the database at dbPath. The schema is created on
// first write.
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if _, err = db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateSession records the start of a mission run and returns its ID.
// Config can be a string, []byte or any JSON-serializable value.
func (s *Store) CreateSession(ctx context.Context, vehicle string, config any) (sessionID int64, err error) {
	var configData sql.NullString

	if config != nil {
		switch v := config.(type) {
		case string:
			configData = sql.NullString{String: v, Valid: true}

		case []byte:
			configData = sql.NullString{String: string(v), Valid: true}

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}
			configData = sql.NullString{String: string(p), Valid: true}
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, vehicle, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

// Session retrieves one session by ID, nil if not found.
func (s *Store) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var sess Session
	var config sql.NullString
	err = stmt.QueryRowContext(ctx, id).Scan(&sess.ID, &sess.StartTime, &sess.Vehicle, &config)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selecting session: %w", err)
	}
	if config.Valid {
		sess.Config = &config.String
	}
	return &sess, nil
}

// Sessions returns all sessions ordered by start time.
func (s *Store) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("selecting sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess Session
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.Vehicle, &config); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, &sess)
	}
	err = rows.Err()
	return
}

// StoreTelemetry records one transmitted telemetry frame.
func (s *Store) StoreTelemetry(ctx context.Context, sessionID int64, t *Telemetry) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertTelemetrySQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var temperature sql.NullFloat64
	if t.Temperature != nil {
		temperature = sql.NullFloat64{Float64: *t.Temperature, Valid: true}
	}

	_, err = stmt.ExecContext(ctx, sessionID, t.Timestamp.UTC(),
		t.Position.Lat, t.Position.Lon, t.Position.Alt, temperature, t.FlightTime)
	if err != nil {
		err = fmt.Errorf("inserting telemetry: %w", err)
	}
	return
}

// StoreEvent records one mission event.
func (s *Store) StoreEvent(ctx context.Context, sessionID int64, e *Event) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertEventSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	if _, err = stmt.ExecContext(ctx, sessionID, e.Timestamp.UTC(), e.State, e.Detail); err != nil {
		err = fmt.Errorf("inserting event: %w", err)
	}
	return
}

// ReadTrack returns the flown track of a session in chronological order.
func (s *Store) ReadTrack(ctx context.Context, sessionID int64) (track []TrackPoint, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectTrackSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("selecting track: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var p TrackPoint
		var lat, lon, alt, temperature sql.NullFloat64
		if err = rows.Scan(&p.Timestamp, &lat, &lon, &alt, &temperature, &p.FlightTime); err != nil {
			err = fmt.Errorf("scanning track point: %w", err)
			return
		}
		p.Position.Lat = lat.Float64
		p.Position.Lon = lon.Float64
		p.Position.Alt = alt.Float64
		if temperature.Valid {
			p.Temperature = &temperature.Float64
		}
		track = append(track, p)
	}
	err = rows.Err()
	return
}

// ReadEvents returns the mission events of a session in chronological order.
func (s *Store) ReadEvents(ctx context.Context, sessionID int64) (events []Event, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectEventsSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("selecting events: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var e Event
		var detail sql.NullString
		if err = rows.Scan(&e.Timestamp, &e.State, &detail); err != nil {
			err = fmt.Errorf("scanning event: %w", err)
			return
		}
		e.Detail = detail.String
		events = append(events, e)
	}
	err = rows.Err()
	return
}

// Close releases both database connections. Safe to call multiple times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.writeDB != nil {
			if err := s.writeDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing write connection: %w", err))
			}
		}
		if s.readDB != nil {
			if err := s.readDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing read connection: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
