package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const createEventsTable = `CREATE TABLE IF NOT EXISTS events_streaming (
	id          TEXT PRIMARY KEY,
	type        TEXT NOT NULL,
	event_time  TIMESTAMPTZ,
	payload     JSONB NOT NULL,
	ingest_time TIMESTAMPTZ NOT NULL
)`

// Row is one event as stored in events_streaming
type Row struct {
	ID         string
	Type       string
	EventTime  *time.Time
	Payload    []byte
	IngestTime time.Time
}

type Writer interface {
	// Write stores row and reports whether it was new
	Write(ctx context.Context, row Row) (bool, error)
}

// PostgresWriter writes to the events_streaming table
type PostgresWriter struct {
	db *sql.DB
}

func NewPostgresWriter(db *sql.DB) *PostgresWriter {
	return &PostgresWriter{db: db}
}

func (pw *PostgresWriter) EnsureSchema(ctx context.Context) error {
	if _, err := pw.db.ExecContext(ctx, createEventsTable); err != nil {
		return fmt.Errorf("failed to create events_streaming table: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) Write(ctx context.Context, row Row) (bool, error) {
	var eventTime any
	if row.EventTime != nil {
		eventTime = *row.EventTime
	}

	res, err := pw.db.ExecContext(ctx,
		`INSERT INTO events_streaming (id, type, event_time, payload, ingest_time)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		row.ID,
		row.Type,
		eventTime,
		string(row.Payload),
		row.IngestTime,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert event %s: %w", row.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
