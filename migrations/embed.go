// Package migrations embeds the SQL schema for each supported dialect.
//
// Files live under sqlite/ and postgres/ and follow the
// YYYYMMDD_HHMMSS_description.{up,down}.sql naming read by the database
// package's migration runner.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// For returns the migration set for a dialect ("sqlite" or "postgres"),
// rooted so that the .sql files sit at ".".
func For(dialect string) (fs.FS, error) {
	switch dialect {
	case "sqlite", "postgres":
		return fs.Sub(files, dialect)
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
}
