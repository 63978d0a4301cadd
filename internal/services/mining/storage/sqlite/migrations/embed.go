package migrations

import "embed"

// FS contains embedded SQLite migrations for mining storage.
//
//go:embed *.sql
var FS embed.FS
