package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lookaway/internal/logging"
	"lookaway/internal/models"
	"lookaway/internal/security"
	"lookaway/internal/validation"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateLoginSession(ctx context.Context, sessionID string, userID int64, expiresAt time.Time) (*models.LoginSession, error)
	GetLoginSession(ctx context.Context, sessionID string) (*models.LoginSession, error)
	DeleteLoginSession(ctx context.Context, sessionID string) error
	ListExpiredLoginSessions(ctx context.Context, now time.Time) ([]string, error)
}

// LogoutHook runs before a login session is deleted. A failing hook keeps
// the login session so the next cleanup can retry it.
type LogoutHook func(ctx context.Context, loginSessionID string) error

// AuthService handles authentication business logic
type AuthService struct {
	users           UserStore
	sessionDuration time.Duration
	onLogout        LogoutHook
	nowFunc         func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		users:           users,
		sessionDuration: sessionDuration,
		nowFunc:         time.Now,
	}
}

// OnLogout installs the hook run before every login session removal
func (s *AuthService) OnLogout(hook LogoutHook) {
	s.onLogout = hook
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logging.FromContext(ctx).Info("User registered", slog.Int64("userID", user.ID))
	return user, nil
}

// Login authenticates a user and creates a login session
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.LoginSession, *models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	sessionID := security.GenerateSessionID()
	expiresAt := s.nowFunc().Add(s.sessionDuration)

	session, err := s.users.CreateLoginSession(ctx, sessionID, user.ID, expiresAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, user, nil
}

// ValidateSession checks if a login session is valid and returns its user
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, error) {
	session, err := s.users.GetLoginSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpiredAt(s.nowFunc()) {
		if err := s.removeLoginSession(ctx, sessionID); err != nil {
			logging.FromContext(ctx).Warn("Failed to remove expired session", slog.String("error", err.Error()))
		}
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}

	return user, nil
}

// Logout removes a login session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.removeLoginSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired login sessions. Sessions whose
// logout hook fails are kept and the errors are joined.
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	ids, err := s.users.ListExpiredLoginSessions(ctx, s.nowFunc())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}

	var n int64
	var errs []error
	for _, id := range ids {
		if err := s.removeLoginSession(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	if len(errs) > 0 {
		return n, fmt.Errorf("failed to cleanup sessions: %w", errors.Join(errs...))
	}
	return n, nil
}

func (s *AuthService) removeLoginSession(ctx context.Context, sessionID string) error {
	if s.onLogout != nil {
		if err := s.onLogout(ctx, sessionID); err != nil {
			return err
		}
	}
	return s.users.DeleteLoginSession(ctx, sessionID)
}

// SessionDuration is the lifetime of new login sessions
func (s *AuthService) SessionDuration() time.Duration {
	return s.sessionDuration
}
