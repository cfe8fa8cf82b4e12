package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"lookaway/internal/database"
	"lookaway/internal/logging"
	"lookaway/internal/models"
	"lookaway/internal/repository"
)

const backupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string            `json:"version"`
	ExportedAt   time.Time         `json:"exported_at"`
	DatabaseType string            `json:"database_type"`
	Users        []UserBackup      `json:"users"`
	Progress     []models.Progress `json:"progress"`
}

// UserBackup represents a user record for backup, including its password hash
type UserBackup struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export writes a complete backup of the database to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) (*BackupData, error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return s.ExportToWriter(ctx, file)
}

// ExportToWriter writes a complete backup of the database as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) (*BackupData, error) {
	users, err := repository.NewUserRepository(s.db).GetAllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	progress, err := repository.NewProgressRepository(s.db).ListAllProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export progress: %w", err)
	}

	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.Name(),
		Users:        make([]UserBackup, 0, len(users)),
		Progress:     progress,
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{
			ID:           u.ID,
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			CreatedAt:    u.CreatedAt,
		})
	}
	if backup.Progress == nil {
		backup.Progress = []models.Progress{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	logging.FromContext(ctx).Info("Database exported",
		slog.Int("users", len(backup.Users)), slog.Int("progress", len(backup.Progress)))
	return backup, nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string, clear bool) (*BackupData, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file, clear)
}

// ImportFromReader restores a backup in a single transaction. With clear
// set, all existing rows are removed first.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader, clear bool) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if clear {
			if err := clearTables(ctx, tx); err != nil {
				return err
			}
		}

		users := repository.NewUserRepository(tx)
		for _, u := range backup.Users {
			err := users.RestoreUser(ctx, models.User{
				ID:           u.ID,
				Username:     u.Username,
				PasswordHash: u.PasswordHash,
				CreatedAt:    u.CreatedAt,
			})
			if err != nil {
				return fmt.Errorf("failed to import user %d: %w", u.ID, err)
			}
		}

		progress := repository.NewProgressRepository(tx)
		for _, p := range backup.Progress {
			if p.SessionTime < 0 || p.LookAwayCount < 0 {
				return fmt.Errorf("progress %d has negative totals", p.ID)
			}
			if err := progress.RestoreProgress(ctx, p); err != nil {
				return fmt.Errorf("failed to import progress %d: %w", p.ID, err)
			}
		}

		return resetSequences(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("Database imported",
		slog.String("exportedAt", backup.ExportedAt.Format(time.RFC3339)),
		slog.Int("users", len(backup.Users)), slog.Int("progress", len(backup.Progress)))
	return &backup, nil
}

func clearTables(ctx context.Context, tx *database.Tx) error {
	// Delete in reverse order of dependencies
	for _, table := range []string{"active_sessions", "login_sessions", "progress", "users"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

// resetSequences moves PostgreSQL id sequences past restored explicit ids.
func resetSequences(ctx context.Context, tx *database.Tx) error {
	if tx.GetDialect().DriverName() != "postgres" {
		return nil
	}
	for _, table := range []string{"users", "progress"} {
		query := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %s",
			table, table)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to reset %s sequence: %w", table, err)
		}
	}
	return nil
}
