package database

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// MySQLDialect talks to MySQL through go-sql-driver/mysql.
type MySQLDialect struct{}

func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) Name() string       { return "mysql" }
func (d *MySQLDialect) DriverName() string { return "mysql" }
func (d *MySQLDialect) ReturningID() bool  { return false }

// DSN forces UTC time parsing and foreign key checks on every connection.
// A URL the driver cannot parse is passed through so Open reports it.
func (d *MySQLDialect) DSN(config DialectConfig) string {
	cfg, err := mysql.ParseDSN(config.URL)
	if err != nil {
		return config.URL
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if cfg.Params == nil {
		cfg.Params = make(map[string]string)
	}
	cfg.Params["foreign_key_checks"] = "1"
	return cfg.FormatDSN()
}

func (d *MySQLDialect) Verify(ctx context.Context, db *sqlx.DB) error {
	var checks int
	if err := db.GetContext(ctx, &checks, "SELECT @@foreign_key_checks"); err != nil {
		return err
	}
	if checks != 1 {
		return errors.New("mysql foreign key checks are disabled")
	}
	return nil
}

func (d *MySQLDialect) MigrationsTable() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			executed_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)
		)`
}
