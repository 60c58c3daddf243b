package migrations

import "embed"

// FS contains embedded SQLite migrations for photo storage.
//
//go:embed *.sql
var FS embed.FS
