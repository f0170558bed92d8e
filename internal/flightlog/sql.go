package flightlog

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      vehicle,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    vehicle,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    vehicle,
    config
FROM sessions
ORDER BY start_time`

	insertTelemetrySQL = `
INSERT INTO telemetry (session_id,
                       timestamp,
                       latitude,
                       longitude,
                       altitude,
                       temperature,
                       flight_time)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	insertEventSQL = `
INSERT INTO events (session_id,
                    timestamp,
                    state,
                    detail)
VALUES (?, ?, ?, ?)`

	selectTrackSQL = `
SELECT
    timestamp,
    latitude,
    longitude,
    altitude,
    temperature,
    flight_time
FROM telemetry
WHERE
    session_id = ?
ORDER BY timestamp, id`

	selectEventsSQL = `
SELECT
    timestamp,
    state,
    detail
FROM events
WHERE
    session_id = ?
ORDER BY timestamp, id`
)

//go:embed schema.sql
var schemaSQL string
