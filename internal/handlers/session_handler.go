package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"lookaway/internal/logging"
	"lookaway/internal/models"
	"lookaway/internal/security"
	"lookaway/internal/service"
)

// SessionHandler serves the monitoring session endpoints
type SessionHandler struct {
	sessions *service.SessionService
	scoring  *service.ScoringService
	tokens   *security.TokenSigner
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *service.SessionService, scoring *service.ScoringService, tokens *security.TokenSigner) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		scoring:  scoring,
		tokens:   tokens,
	}
}

type startSessionResponse struct {
	ProgressID int64     `json:"progress_id"`
	StartedAt  time.Time `json:"started_at"`
	Token      string    `json:"token"`
}

type lookAwayResponse struct {
	ProgressID    int64 `json:"progress_id"`
	LookAwayCount int   `json:"look_away_count"`
}

type dashboardResponse struct {
	User     userResponse           `json:"user"`
	Summary  models.ProgressSummary `json:"summary"`
	Active   *models.SessionHandle  `json:"active_session"`
	Sessions []models.Progress      `json:"sessions"`
}

// resolveHandle finds the session an event belongs to: the bearer token
// first, then the handle bound to the login session. fromBinding reports
// which one was used.
func (h *SessionHandler) resolveHandle(r *http.Request) (handle *service.SessionHandle, fromBinding bool, err error) {
	if token := security.BearerToken(r); token != "" {
		parsed, err := h.tokens.Parse(token)
		if err != nil {
			return nil, false, err
		}
		return parsed, false, nil
	}

	loginID := GetLoginSessionID(r.Context())
	if loginID == "" {
		return nil, false, nil
	}
	handle, err = h.sessions.Bound(r.Context(), loginID)
	return handle, handle != nil, err
}

// StartSession opens a new progress record for the logged-in user and binds
// it to the login session. A previously bound session is ended first.
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := GetUserFromContext(ctx)
	loginID := GetLoginSessionID(ctx)

	if user != nil && loginID != "" {
		if _, err := h.sessions.EndBoundSession(ctx, loginID); err != nil {
			respondWithServiceError(w, r, "Failed to end previous session", err)
			return
		}
	}

	handle, err := h.sessions.StartSession(ctx, user)
	if err != nil {
		respondWithServiceError(w, r, "Failed to start session", err)
		return
	}

	if loginID != "" {
		if err := h.sessions.Bind(ctx, loginID, handle); err != nil {
			respondWithServiceError(w, r, "Failed to bind session", err)
			return
		}
	}

	token, err := h.tokens.Sign(handle)
	if err != nil {
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Failed to sign session token", err)
		return
	}

	writeJSON(w, http.StatusCreated, startSessionResponse{
		ProgressID: handle.ProgressID,
		StartedAt:  handle.StartedAt,
		Token:      token,
	})
}

// UpdateLookAway records one confirmed look-away
func (h *SessionHandler) UpdateLookAway(w http.ResponseWriter, r *http.Request) {
	handle, _, err := h.resolveHandle(r)
	if err != nil {
		respondWithServiceError(w, r, "Failed to resolve session", err)
		return
	}

	p, err := h.sessions.RouteLookAway(r.Context(), handle, GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, "Failed to record look-away", err)
		return
	}

	writeJSON(w, http.StatusOK, lookAwayResponse{ProgressID: p.ID, LookAwayCount: p.LookAwayCount})
}

// EndSession closes the current session and clears the login binding
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, fromBinding, err := h.resolveHandle(r)
	if err != nil {
		respondWithServiceError(w, r, "Failed to resolve session", err)
		return
	}

	p, endErr := h.sessions.EndSession(ctx, handle)
	if endErr != nil && !(fromBinding && errors.Is(endErr, service.ErrNoActiveSession)) {
		respondWithServiceError(w, r, "Failed to end session", endErr)
		return
	}

	if loginID := GetLoginSessionID(ctx); loginID != "" && handle != nil {
		bound, err := h.sessions.Bound(ctx, loginID)
		if err == nil && bound != nil && bound.ProgressID == handle.ProgressID {
			if err := h.sessions.Unbind(ctx, loginID); err != nil {
				logging.FromContext(ctx).Warn("Failed to clear session binding", slog.String("error", err.Error()))
			}
		}
	}

	if endErr != nil {
		// The bound record was already closed; the stale binding is gone now.
		respondWithServiceError(w, r, "Session already ended", endErr)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Dashboard lists the user's sessions with their totals
func (h *SessionHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := GetUserFromContext(ctx)

	records, err := h.sessions.History(ctx, user.ID)
	if err != nil {
		respondWithServiceError(w, r, "Failed to load history", err)
		return
	}
	summary, err := h.scoring.Summary(ctx, user.ID)
	if err != nil {
		respondWithServiceError(w, r, "Failed to load summary", err)
		return
	}

	var active *models.SessionHandle
	if loginID := GetLoginSessionID(ctx); loginID != "" {
		if active, err = h.sessions.Bound(ctx, loginID); err != nil {
			respondWithServiceError(w, r, "Failed to load bound session", err)
			return
		}
	}

	if records == nil {
		records = []models.Progress{}
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		User:     userResponse{ID: user.ID, Username: user.Username},
		Summary:  summary,
		Active:   active,
		Sessions: records,
	})
}

type leaderboardRow struct {
	Rank int `json:"rank"`
	models.LeaderboardEntry
}

// Leaderboard ranks all users by points
func (h *SessionHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.scoring.Leaderboard(r.Context())
	if err != nil {
		respondWithServiceError(w, r, "Failed to build leaderboard", err)
		return
	}

	rows := make([]leaderboardRow, len(entries))
	for i, e := range entries {
		rows[i] = leaderboardRow{Rank: i + 1, LeaderboardEntry: e}
	}
	writeJSON(w, http.StatusOK, rows)
}
