package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Dialect captures what differs between the supported databases. Queries
// are always written with ? placeholders; sqlx rebinds them per driver.
type Dialect interface {
	// Name identifies the dialect in backups and selects its migrations.
	Name() string
	DriverName() string
	DSN(config DialectConfig) string
	// ReturningID reports whether inserts learn their key through
	// RETURNING id instead of LastInsertId.
	ReturningID() bool
	// Verify checks connection settings the schema relies on.
	Verify(ctx context.Context, db *sqlx.DB) error
	MigrationsTable() string
}

// DialectConfig holds what a dialect needs to build its DSN: a file path
// for SQLite, a URL for the servers.
type DialectConfig struct {
	Path string
	URL  string
}
