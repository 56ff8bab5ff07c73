package migrations

import "embed"

// FS contains embedded SQLite migrations for duel telemetry storage.
//
//go:embed *.sql
var FS embed.FS
