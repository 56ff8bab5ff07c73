// Package storage defines persistence contracts for duel operational records.
//
// Only operational telemetry is persisted. Moves and positions stay in
// memory for the lifetime of a game.
package storage

import (
	"context"
	"time"
)

// TelemetryEvent is one operational record: a pairing, a finished or
// aborted game, or a lobby timeout.
type TelemetryEvent struct {
	Timestamp  time.Time
	EventName  string
	Severity   string
	GameID     string
	ActorID    string
	TraceID    string
	SpanID     string
	Attributes map[string]any
}

// TelemetryStore persists operational telemetry records for audits and incident analysis.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, evt TelemetryEvent) error
}

// TelemetryReader lists recorded telemetry, newest first.
type TelemetryReader interface {
	ListTelemetryEvents(ctx context.Context, limit int) ([]TelemetryEvent, error)
}
