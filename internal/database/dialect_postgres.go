package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresDialect talks to PostgreSQL through lib/pq.
type PostgresDialect struct{}

func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "postgres" }
func (d *PostgresDialect) ReturningID() bool  { return true }

func (d *PostgresDialect) DSN(config DialectConfig) string {
	return config.URL
}

// Verify requires PostgreSQL 12 or newer, the oldest release the
// migrations are written against.
func (d *PostgresDialect) Verify(ctx context.Context, db *sqlx.DB) error {
	var version int
	if err := db.GetContext(ctx, &version, "SELECT current_setting('server_version_num')::int"); err != nil {
		return err
	}
	if version < 120000 {
		return fmt.Errorf("postgres %d is too old, need 12+", version)
	}
	return nil
}

func (d *PostgresDialect) MigrationsTable() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT UNIQUE NOT NULL,
			executed_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`
}
