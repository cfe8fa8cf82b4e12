package database

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect stores everything in a local file through go-sqlite3.
type SQLiteDialect struct{}

func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite3" }
func (d *SQLiteDialect) ReturningID() bool  { return false }

func (d *SQLiteDialect) DSN(config DialectConfig) string {
	// Pragmas go in the DSN so every pooled connection gets them.
	sep := "?"
	if strings.Contains(config.Path, "?") {
		sep = "&"
	}
	return config.Path + sep + "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
}

func (d *SQLiteDialect) Verify(ctx context.Context, db *sqlx.DB) error {
	var enabled int
	if err := db.GetContext(ctx, &enabled, "PRAGMA foreign_keys"); err != nil {
		return err
	}
	if enabled != 1 {
		return errors.New("sqlite foreign keys are not enabled")
	}
	return nil
}

func (d *SQLiteDialect) MigrationsTable() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT UNIQUE NOT NULL,
			executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`
}
