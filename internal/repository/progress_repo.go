package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"lookaway/internal/database"
	"lookaway/internal/models"
)

// ProgressRepository handles database operations for progress records and
// the monitoring sessions bound to login sessions
type ProgressRepository struct {
	db database.DBTX
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const progressColumns = "id, user_id, session_time, look_away_count, started_at, ended_at"

// CreateProgress inserts an open record with zero time and zero look-aways
func (r *ProgressRepository) CreateProgress(ctx context.Context, userID int64, startedAt time.Time) (*models.Progress, error) {
	startedAt = startedAt.UTC()
	query := `
		INSERT INTO progress (user_id, session_time, look_away_count, started_at)
		VALUES (?, 0, 0, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, userID, startedAt)
	if err != nil {
		return nil, storeErr("create progress", err)
	}

	return &models.Progress{
		ID:        id,
		UserID:    userID,
		StartedAt: startedAt,
	}, nil
}

// RestoreProgress inserts a record keeping its original ID
func (r *ProgressRepository) RestoreProgress(ctx context.Context, p models.Progress) error {
	query := `
		INSERT INTO progress (id, user_id, session_time, look_away_count, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.UserID, p.SessionTime, p.LookAwayCount, p.StartedAt, p.EndedAt)
	if err != nil {
		return storeErr("restore progress", err)
	}
	return nil
}

// GetProgress loads a record by ID
func (r *ProgressRepository) GetProgress(ctx context.Context, id int64) (*models.Progress, error) {
	var p models.Progress
	err := r.db.GetContext(ctx, &p, "SELECT "+progressColumns+" FROM progress WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, storeErr("get progress", err)
	}
	return &p, nil
}

// IncrementLookAways adds one look-away to an open record in a single
// statement, so concurrent deliveries never lose updates.
func (r *ProgressRepository) IncrementLookAways(ctx context.Context, id int64) (*models.Progress, error) {
	query := `
		UPDATE progress
		SET look_away_count = look_away_count + 1
		WHERE id = ? AND ended_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return nil, storeErr("increment look-aways", err)
	}
	if err := r.checkUpdated(ctx, result, id); err != nil {
		return nil, err
	}
	return r.GetProgress(ctx, id)
}

// EndProgress writes the final session time and closes the record
func (r *ProgressRepository) EndProgress(ctx context.Context, id int64, sessionTime float64, endedAt time.Time) (*models.Progress, error) {
	query := `
		UPDATE progress
		SET session_time = ?, ended_at = ?
		WHERE id = ? AND ended_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, sessionTime, endedAt.UTC(), id)
	if err != nil {
		return nil, storeErr("end progress", err)
	}
	if err := r.checkUpdated(ctx, result, id); err != nil {
		return nil, err
	}
	return r.GetProgress(ctx, id)
}

// checkUpdated distinguishes a missing record from a closed one when an
// update touched no rows.
func (r *ProgressRepository) checkUpdated(ctx context.Context, result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return storeErr("count updated progress", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetProgress(ctx, id); err != nil {
		return err
	}
	return ErrRecordClosed
}

// ListProgressByUser returns a user's records, newest first
func (r *ProgressRepository) ListProgressByUser(ctx context.Context, userID int64) ([]models.Progress, error) {
	var records []models.Progress
	query := "SELECT " + progressColumns + " FROM progress WHERE user_id = ? ORDER BY started_at DESC, id DESC"
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, storeErr("list progress", err)
	}
	return records, nil
}

// ListAllProgress returns every record in ascending id order
func (r *ProgressRepository) ListAllProgress(ctx context.Context) ([]models.Progress, error) {
	var records []models.Progress
	if err := r.db.SelectContext(ctx, &records, "SELECT "+progressColumns+" FROM progress ORDER BY id ASC"); err != nil {
		return nil, storeErr("list progress", err)
	}
	return records, nil
}

// MostRecentOpenProgress returns the newest open record owned by userID, or
// by anyone when userID is nil. It returns nil when no record is open.
func (r *ProgressRepository) MostRecentOpenProgress(ctx context.Context, userID *int64) (*models.Progress, error) {
	query := "SELECT " + progressColumns + " FROM progress WHERE ended_at IS NULL"
	var args []any
	if userID != nil {
		query += " AND user_id = ?"
		args = append(args, *userID)
	}
	query += " ORDER BY started_at DESC, id DESC LIMIT 1"

	var p models.Progress
	err := r.db.GetContext(ctx, &p, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find open progress", err)
	}
	return &p, nil
}

// BindActiveSession records which progress record a login session is
// monitoring, replacing any previous binding.
func (r *ProgressRepository) BindActiveSession(ctx context.Context, a models.ActiveSession) error {
	if err := r.DeleteActiveSession(ctx, a.LoginSessionID); err != nil {
		return err
	}
	query := `
		INSERT INTO active_sessions (login_session_id, user_id, progress_id, started_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, a.LoginSessionID, a.UserID, a.ProgressID, a.StartedAt.UTC()); err != nil {
		return storeErr("bind active session", err)
	}
	return nil
}

// GetActiveSession returns the binding for a login session, or nil
func (r *ProgressRepository) GetActiveSession(ctx context.Context, loginSessionID string) (*models.ActiveSession, error) {
	var a models.ActiveSession
	query := "SELECT login_session_id, user_id, progress_id, started_at FROM active_sessions WHERE login_session_id = ?"
	err := r.db.GetContext(ctx, &a, query, loginSessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get active session", err)
	}
	return &a, nil
}

// DeleteActiveSession clears a login session's binding
func (r *ProgressRepository) DeleteActiveSession(ctx context.Context, loginSessionID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM active_sessions WHERE login_session_id = ?", loginSessionID); err != nil {
		return storeErr("delete active session", err)
	}
	return nil
}
