package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/duel/internal/services/duel/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotentAcrossRestarts(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "telemetry.db")
	first, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("close reopened store: %v", err)
	}
}

func TestAppendListTelemetryRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, time.February, 22, 16, 40, 0, 0, time.UTC)
	paired := storage.TelemetryEvent{
		Timestamp:  now,
		EventName:  "lobby.paired",
		Severity:   "INFO",
		GameID:     "game-1",
		ActorID:    "alice",
		TraceID:    "trace-1",
		SpanID:     "span-1",
		Attributes: map[string]any{"second": "bob"},
	}
	finished := storage.TelemetryEvent{
		Timestamp: now.Add(time.Minute),
		EventName: "game.finished",
		Severity:  "INFO",
		GameID:    "game-1",
	}
	for _, evt := range []storage.TelemetryEvent{paired, finished} {
		if err := store.AppendTelemetryEvent(context.Background(), evt); err != nil {
			t.Fatalf("append %s: %v", evt.EventName, err)
		}
	}

	events, err := store.ListTelemetryEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("list telemetry events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].EventName != "game.finished" {
		t.Fatalf("newest event = %q, want %q", events[0].EventName, "game.finished")
	}
	got := events[1]
	if !got.Timestamp.Equal(now) {
		t.Fatalf("timestamp = %v, want %v", got.Timestamp, now)
	}
	if got.GameID != "game-1" || got.ActorID != "alice" {
		t.Fatalf("ids = %q/%q, want game-1/alice", got.GameID, got.ActorID)
	}
	if got.TraceID != "trace-1" || got.SpanID != "span-1" {
		t.Fatalf("trace = %q/%q, want trace-1/span-1", got.TraceID, got.SpanID)
	}
	if got.Attributes["second"] != "bob" {
		t.Fatalf("attributes = %v, want second=bob", got.Attributes)
	}
	if events[0].Attributes != nil {
		t.Fatalf("expected nil attributes, got %v", events[0].Attributes)
	}
}

func TestListTelemetryRespectsLimit(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	for i := 0; i < 3; i++ {
		if err := store.AppendTelemetryEvent(context.Background(), storage.TelemetryEvent{
			EventName: "join.timeout",
			Severity:  "WARN",
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	events, err := store.ListTelemetryEvents(context.Background(), 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Timestamp.IsZero() {
		t.Fatal("expected store to stamp missing timestamp")
	}
}

func TestAppendTelemetryValidates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.AppendTelemetryEvent(context.Background(), storage.TelemetryEvent{Severity: "INFO"}); err == nil {
		t.Fatal("expected missing event name error")
	}
	if err := store.AppendTelemetryEvent(context.Background(), storage.TelemetryEvent{EventName: "x"}); err == nil {
		t.Fatal("expected missing severity error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.AppendTelemetryEvent(ctx, storage.TelemetryEvent{EventName: "x", Severity: "INFO"}); err == nil {
		t.Fatal("expected cancelled context error")
	}
}

func TestNilStoreIsNotConfigured(t *testing.T) {
	t.Parallel()

	var store *Store
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
	if err := store.AppendTelemetryEvent(context.Background(), storage.TelemetryEvent{}); err == nil {
		t.Fatal("expected not configured error")
	}
	if _, err := store.ListTelemetryEvents(context.Background(), 1); err == nil {
		t.Fatal("expected not configured error")
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "telemetry.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
