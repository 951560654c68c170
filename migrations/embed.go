// Package migrations ships the SQL schema of the Postgres lead sink.
package migrations

import "embed"

// FS holds every *.up.sql file of this directory.
//
//go:embed *.sql
var FS embed.FS
