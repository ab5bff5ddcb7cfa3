package migrations

import "embed"

// FS contains embedded SQLite migrations for battleground storage.
//
//go:embed *.sql
var FS embed.FS
