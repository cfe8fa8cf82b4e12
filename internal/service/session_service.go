package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"lookaway/internal/logging"
	"lookaway/internal/models"
	"lookaway/internal/repository"
)

// SessionHandle identifies one monitoring session.
type SessionHandle = models.SessionHandle

// RoutingMode decides where a look-away event goes when the caller presents
// no session handle.
type RoutingMode int

const (
	// RoutingStrict rejects events without a handle.
	RoutingStrict RoutingMode = iota
	// RoutingBestEffort applies them to the most recent open session.
	RoutingBestEffort
)

// ParseRoutingMode is the only accepted spelling of routing modes; empty
// means strict.
func ParseRoutingMode(s string) (RoutingMode, error) {
	switch s {
	case "", "strict":
		return RoutingStrict, nil
	case "best-effort":
		return RoutingBestEffort, nil
	default:
		return RoutingStrict, fmt.Errorf("unknown event routing mode %q", s)
	}
}

func (m RoutingMode) String() string {
	if m == RoutingBestEffort {
		return "best-effort"
	}
	return "strict"
}

// ProgressStore is the persistence the session accumulator needs.
type ProgressStore interface {
	CreateProgress(ctx context.Context, userID int64, startedAt time.Time) (*models.Progress, error)
	IncrementLookAways(ctx context.Context, id int64) (*models.Progress, error)
	EndProgress(ctx context.Context, id int64, sessionTime float64, endedAt time.Time) (*models.Progress, error)
	ListProgressByUser(ctx context.Context, userID int64) ([]models.Progress, error)
	MostRecentOpenProgress(ctx context.Context, userID *int64) (*models.Progress, error)
	BindActiveSession(ctx context.Context, a models.ActiveSession) error
	GetActiveSession(ctx context.Context, loginSessionID string) (*models.ActiveSession, error)
	DeleteActiveSession(ctx context.Context, loginSessionID string) error
}

// SessionService accumulates look-away events and elapsed time into
// progress records.
type SessionService struct {
	progress ProgressStore
	routing  RoutingMode
	nowFunc  func() time.Time
}

func NewSessionService(progress ProgressStore, routing RoutingMode) *SessionService {
	return &SessionService{
		progress: progress,
		routing:  routing,
		nowFunc:  time.Now,
	}
}

func (s *SessionService) Routing() RoutingMode {
	return s.routing
}

// StartSession opens a new progress record for user.
func (s *SessionService) StartSession(ctx context.Context, user *models.User) (SessionHandle, error) {
	if user == nil {
		return SessionHandle{}, ErrNotAuthenticated
	}

	p, err := s.progress.CreateProgress(ctx, user.ID, s.nowFunc())
	if err != nil {
		return SessionHandle{}, fmt.Errorf("failed to start session: %w", err)
	}

	metrics.sessionsStarted.Add(ctx, 1)
	logging.FromContext(ctx).Info("Session started",
		slog.Int64("progressID", p.ID), slog.Int64("userID", user.ID))

	return SessionHandle{
		ProgressID: p.ID,
		UserID:     user.ID,
		StartedAt:  p.StartedAt,
	}, nil
}

// RecordLookAway adds exactly one look-away to the handle's record.
func (s *SessionService) RecordLookAway(ctx context.Context, h *SessionHandle) (*models.Progress, error) {
	if h == nil {
		return nil, ErrNoActiveSession
	}

	p, err := s.progress.IncrementLookAways(ctx, h.ProgressID)
	if err != nil {
		return nil, closedAsNoSession(err, "record look-away")
	}

	metrics.lookAways.Add(ctx, 1, metric.WithAttributes(attribute.String("routing", s.routing.String())))
	logging.FromContext(ctx).Debug("Look-away recorded",
		slog.Int64("progressID", p.ID), slog.Int("count", p.LookAwayCount))
	return p, nil
}

// EndSession writes the elapsed time since the handle's start and closes
// the record. Callers should drop their binding afterwards.
func (s *SessionService) EndSession(ctx context.Context, h *SessionHandle) (*models.Progress, error) {
	if h == nil {
		return nil, ErrNoActiveSession
	}

	now := s.nowFunc()
	elapsed := max(now.Sub(h.StartedAt).Seconds(), 0)

	p, err := s.progress.EndProgress(ctx, h.ProgressID, elapsed, now)
	if err != nil {
		return nil, closedAsNoSession(err, "end session")
	}

	metrics.sessionsEnded.Add(ctx, 1)
	metrics.sessionDuration.Record(ctx, elapsed)
	logging.FromContext(ctx).Info("Session ended",
		slog.Int64("progressID", p.ID),
		slog.Float64("sessionTime", p.SessionTime),
		slog.Int("lookAways", p.LookAwayCount))
	return p, nil
}

// RouteLookAway records an event using the handle when present and falls
// back according to the routing mode otherwise.
func (s *SessionService) RouteLookAway(ctx context.Context, h *SessionHandle, user *models.User) (*models.Progress, error) {
	if h != nil {
		return s.RecordLookAway(ctx, h)
	}

	if s.routing == RoutingStrict {
		if user == nil {
			return nil, ErrNotAuthenticated
		}
		return nil, ErrNoActiveSession
	}

	var owner *int64
	if user != nil {
		owner = &user.ID
	}
	p, err := s.progress.MostRecentOpenProgress(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to find open session: %w", err)
	}
	if p == nil {
		return nil, ErrNoActiveSession
	}

	logging.FromContext(ctx).Warn("Routing look-away without a session handle",
		slog.Int64("progressID", p.ID), slog.Bool("authenticated", user != nil))
	return s.RecordLookAway(ctx, &SessionHandle{ProgressID: p.ID, UserID: p.UserID, StartedAt: p.StartedAt})
}

// Bind stores h as the monitoring session of a login session.
func (s *SessionService) Bind(ctx context.Context, loginSessionID string, h SessionHandle) error {
	err := s.progress.BindActiveSession(ctx, models.ActiveSession{
		LoginSessionID: loginSessionID,
		UserID:         h.UserID,
		ProgressID:     h.ProgressID,
		StartedAt:      h.StartedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to bind session: %w", err)
	}
	return nil
}

// Bound returns the handle bound to a login session, or nil.
func (s *SessionService) Bound(ctx context.Context, loginSessionID string) (*SessionHandle, error) {
	a, err := s.progress.GetActiveSession(ctx, loginSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bound session: %w", err)
	}
	if a == nil {
		return nil, nil
	}
	return &SessionHandle{ProgressID: a.ProgressID, UserID: a.UserID, StartedAt: a.StartedAt}, nil
}

func (s *SessionService) Unbind(ctx context.Context, loginSessionID string) error {
	if err := s.progress.DeleteActiveSession(ctx, loginSessionID); err != nil {
		return fmt.Errorf("failed to unbind session: %w", err)
	}
	return nil
}

// EndBoundSession ends the record bound to a login session and drops the
// binding. A record that was already closed only loses its binding. It
// returns nil when nothing was ended.
func (s *SessionService) EndBoundSession(ctx context.Context, loginSessionID string) (*models.Progress, error) {
	h, err := s.Bound(ctx, loginSessionID)
	if err != nil || h == nil {
		return nil, err
	}

	p, err := s.EndSession(ctx, h)
	if err != nil && !errors.Is(err, ErrNoActiveSession) {
		return nil, err
	}
	if err := s.Unbind(ctx, loginSessionID); err != nil {
		return nil, err
	}
	return p, nil
}

// CloseOnLogout adapts EndBoundSession to a logout hook.
func (s *SessionService) CloseOnLogout(ctx context.Context, loginSessionID string) error {
	_, err := s.EndBoundSession(ctx, loginSessionID)
	return err
}

// History returns the user's progress records, newest first.
func (s *SessionService) History(ctx context.Context, userID int64) ([]models.Progress, error) {
	records, err := s.progress.ListProgressByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return records, nil
}

func closedAsNoSession(err error, op string) error {
	if errors.Is(err, repository.ErrRecordClosed) || errors.Is(err, repository.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", ErrNoActiveSession, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
