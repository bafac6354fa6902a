package migrations

import "embed"

// FS contains embedded SQLite migrations for the attendee mirror.
//
//go:embed *.sql
var FS embed.FS
