package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"lookaway/internal/database"
	"lookaway/internal/models"
)

// UserRepository handles database operations for users and login sessions
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, username, password_hash, created_at"

// CreateUser inserts a new user into the database
func (r *UserRepository) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, username, passwordHash, now)
	if err != nil {
		return nil, storeErr("create user", err)
	}

	return &models.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}, nil
}

// RestoreUser inserts a user keeping its original ID
func (r *UserRepository) RestoreUser(ctx context.Context, user models.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.PasswordHash, user.CreatedAt); err != nil {
		return storeErr("restore user", err)
	}
	return nil
}

// GetUserByUsername retrieves a user by username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get user", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get user", err)
	}
	return &user, nil
}

// GetAllUsers retrieves all users in ascending id order
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, "SELECT "+userColumns+" FROM users ORDER BY id ASC"); err != nil {
		return nil, storeErr("query users", err)
	}
	return users, nil
}

// CreateLoginSession creates a new login session for a user
func (r *UserRepository) CreateLoginSession(ctx context.Context, sessionID string, userID int64, expiresAt time.Time) (*models.LoginSession, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO login_sessions (id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, sessionID, userID, expiresAt.UTC(), now); err != nil {
		return nil, storeErr("create login session", err)
	}

	return &models.LoginSession{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: now,
	}, nil
}

// GetLoginSession retrieves a login session by ID
func (r *UserRepository) GetLoginSession(ctx context.Context, sessionID string) (*models.LoginSession, error) {
	var session models.LoginSession
	query := "SELECT id, user_id, expires_at, created_at FROM login_sessions WHERE id = ?"
	err := r.db.GetContext(ctx, &session, query, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get login session", err)
	}
	return &session, nil
}

// DeleteLoginSession removes a login session from the database
func (r *UserRepository) DeleteLoginSession(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM login_sessions WHERE id = ?", sessionID); err != nil {
		return storeErr("delete login session", err)
	}
	return nil
}

// ListExpiredLoginSessions returns the ids of sessions that expired before now
func (r *UserRepository) ListExpiredLoginSessions(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	query := "SELECT id FROM login_sessions WHERE expires_at < ? ORDER BY expires_at"
	if err := r.db.SelectContext(ctx, &ids, query, now.UTC()); err != nil {
		return nil, storeErr("list expired login sessions", err)
	}
	return ids, nil
}
