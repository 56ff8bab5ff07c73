// Package telemetry records operational duel events: pairings, finished and
// aborted games, and lobby timeouts.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/duel/internal/services/duel/storage"
)

// Severity describes the telemetry severity level.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Event names.
const (
	EventLobbyPaired  = "lobby.paired"
	EventJoinTimeout  = "join.timeout"
	EventGameFinished = "game.finished"
	EventGameAborted  = "game.aborted"
)

// Emitter records operational telemetry events.
type Emitter struct {
	store storage.TelemetryStore
	clock func() time.Time
}

// NewEmitter creates a new telemetry emitter.
func NewEmitter(store storage.TelemetryStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// Emit records a telemetry event. It is a no-op when the store is nil.
// Missing timestamps and trace identifiers are filled from the clock and the
// span in ctx.
func (e *Emitter) Emit(ctx context.Context, evt storage.TelemetryEvent) error {
	if e == nil || e.store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if evt.Timestamp.IsZero() {
		if e.clock == nil {
			evt.Timestamp = time.Now().UTC()
		} else {
			evt.Timestamp = e.clock().UTC()
		}
	}
	if evt.Severity == "" {
		evt.Severity = string(SeverityInfo)
	}
	if spanContext := trace.SpanContextFromContext(ctx); spanContext.IsValid() {
		if evt.TraceID == "" {
			evt.TraceID = spanContext.TraceID().String()
		}
		if evt.SpanID == "" {
			evt.SpanID = spanContext.SpanID().String()
		}
	}
	return e.store.AppendTelemetryEvent(ctx, evt)
}
