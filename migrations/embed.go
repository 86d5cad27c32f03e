// Package migrations embeds the schema migrations for each SQL store.
package migrations

import "embed"

// FS holds postgres/ and sqlite/, one golang-migrate source directory per driver.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
