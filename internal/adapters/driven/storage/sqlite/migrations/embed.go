// Package migrations embeds the SQL schema migrations of the SQLite store.
package migrations

import "embed"

// FS holds the NNN_name.up.sql and NNN_name.down.sql files.
//
//go:embed *.sql
var FS embed.FS
