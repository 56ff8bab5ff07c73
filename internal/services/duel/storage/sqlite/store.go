// Package sqlite provides a SQLite-backed duel telemetry store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/duel/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/duel/internal/services/duel/storage"
	"github.com/louisbranch/duel/internal/services/duel/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// defaultListLimit caps ListTelemetryEvents when the caller passes no limit.
const defaultListLimit = 100

// Store persists duel telemetry in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var (
	_ storage.TelemetryStore  = (*Store)(nil)
	_ storage.TelemetryReader = (*Store)(nil)
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite telemetry store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendTelemetryEvent records one telemetry event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	name := strings.TrimSpace(evt.EventName)
	if name == "" {
		return fmt.Errorf("event name is required")
	}
	severity := strings.TrimSpace(evt.Severity)
	if severity == "" {
		return fmt.Errorf("severity is required")
	}
	timestamp := evt.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var attributes []byte
	if len(evt.Attributes) > 0 {
		encoded, err := json.Marshal(evt.Attributes)
		if err != nil {
			return fmt.Errorf("marshal attributes: %w", err)
		}
		attributes = encoded
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO telemetry_events (
		   timestamp,
		   event_name,
		   severity,
		   game_id,
		   actor_id,
		   trace_id,
		   span_id,
		   attributes_json
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		toMillis(timestamp),
		name,
		severity,
		strings.TrimSpace(evt.GameID),
		strings.TrimSpace(evt.ActorID),
		evt.TraceID,
		evt.SpanID,
		attributes,
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}

// ListTelemetryEvents returns up to limit events, newest first.
func (s *Store) ListTelemetryEvents(ctx context.Context, limit int) ([]storage.TelemetryEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT timestamp, event_name, severity, game_id, actor_id, trace_id, span_id, attributes_json
		 FROM telemetry_events
		 ORDER BY seq DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list telemetry events: %w", err)
	}
	defer rows.Close()

	events := make([]storage.TelemetryEvent, 0, limit)
	for rows.Next() {
		var (
			evt        storage.TelemetryEvent
			timestamp  int64
			attributes []byte
		)
		if err := rows.Scan(
			&timestamp,
			&evt.EventName,
			&evt.Severity,
			&evt.GameID,
			&evt.ActorID,
			&evt.TraceID,
			&evt.SpanID,
			&attributes,
		); err != nil {
			return nil, fmt.Errorf("scan telemetry event: %w", err)
		}
		evt.Timestamp = fromMillis(timestamp)
		if len(attributes) > 0 {
			if err := json.Unmarshal(attributes, &evt.Attributes); err != nil {
				return nil, fmt.Errorf("decode attributes: %w", err)
			}
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate telemetry events: %w", err)
	}
	return events, nil
}
