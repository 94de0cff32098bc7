package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"appointment-monitor/models"
)

const eventColumns = 11

// PostgresRecorder persists tracked events to PostgreSQL.
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresRecorder.
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pr := &PostgresRecorder{db: db}
	if err := pr.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pr, nil
}

func (pr *PostgresRecorder) migrate(ctx context.Context) error {
	_, err := pr.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS appointment_events (
			id                    SERIAL PRIMARY KEY,
			check_number          INTEGER      NOT NULL DEFAULT 0,
			event_type            VARCHAR(32)  NOT NULL,
			location_id           VARCHAR(32)  NOT NULL,
			location_name         TEXT         NOT NULL DEFAULT '',
			previous_appointment  TEXT         NOT NULL DEFAULT '',
			new_appointment       TEXT         NOT NULL DEFAULT '',
			time_difference_hours DOUBLE PRECISION,
			weekday               VARCHAR(16)  NOT NULL DEFAULT '',
			hour_of_day           SMALLINT     NOT NULL DEFAULT 0,
			month                 VARCHAR(16)  NOT NULL DEFAULT '',
			observed_at           TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_events_location ON appointment_events(location_id);
		CREATE INDEX IF NOT EXISTS idx_events_type     ON appointment_events(event_type);
		CREATE INDEX IF NOT EXISTS idx_events_observed ON appointment_events(observed_at);
	`)
	return err
}

// Record batch-inserts the events.
func (pr *PostgresRecorder) Record(ctx context.Context, events []models.TrackedEvent) error {
	const batchSize = 50
	for i := 0; i < len(events); i += batchSize {
		end := i + batchSize
		if end > len(events) {
			end = len(events)
		}
		query, args := buildEventInsert(events[i:end])
		if _, err := pr.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: insert events: %w", err)
		}
	}
	return nil
}

func buildEventInsert(batch []models.TrackedEvent) (string, []interface{}) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*eventColumns)

	for idx, ev := range batch {
		base := idx * eventColumns
		placeholders := make([]string, eventColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")

		var delta interface{}
		if ev.TimeDeltaHours != nil {
			delta = *ev.TimeDeltaHours
		}
		valueArgs = append(valueArgs,
			ev.CheckNumber, string(ev.Kind), ev.LocationID, ev.LocationName,
			ev.Previous, ev.Current, delta, ev.Weekday, ev.Hour, ev.Month, ev.ObservedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO appointment_events (check_number, event_type, location_id, location_name,
			previous_appointment, new_appointment, time_difference_hours, weekday, hour_of_day, month, observed_at)
		VALUES %s
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

func (pr *PostgresRecorder) Close() error {
	return pr.db.Close()
}

// FetchRecent retrieves the newest events first. Used by the history command.
func (pr *PostgresRecorder) FetchRecent(ctx context.Context, limit int) ([]models.TrackedEvent, error) {
	rows, err := pr.db.QueryContext(ctx, `
		SELECT id, check_number, event_type, location_id, location_name, previous_appointment,
		       new_appointment, time_difference_hours, weekday, hour_of_day, month, observed_at
		FROM appointment_events
		ORDER BY observed_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch recent: %w", err)
	}
	defer rows.Close()

	var events []models.TrackedEvent
	for rows.Next() {
		var (
			ev    models.TrackedEvent
			kind  string
			delta sql.NullFloat64
		)
		if err := rows.Scan(
			&ev.ID, &ev.CheckNumber, &kind, &ev.LocationID, &ev.LocationName, &ev.Previous,
			&ev.Current, &delta, &ev.Weekday, &ev.Hour, &ev.Month, &ev.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		ev.Kind = models.EventKind(kind)
		if delta.Valid {
			d := delta.Float64
			ev.TimeDeltaHours = &d
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
