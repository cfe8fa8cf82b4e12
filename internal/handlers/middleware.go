package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"lookaway/internal/logging"
	"lookaway/internal/models"
	"lookaway/internal/reporting"
	"lookaway/internal/security"
	"lookaway/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey         ContextKey = "user"
	LoginSessionContextKey ContextKey = "login_session"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	limiter     *security.RateLimiter
}

// NewMiddleware creates a new middleware instance. A nil limiter disables
// rate limiting.
func NewMiddleware(authService *service.AuthService, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		authService: authService,
		limiter:     limiter,
	}
}

// authenticate resolves the login cookie. Unknown or expired cookies are
// cleared and the request continues anonymously. Any other failure is
// returned and the cookie is left alone.
func (m *Middleware) authenticate(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return r, nil
	}

	user, err := m.authService.ValidateSession(r.Context(), cookie.Value)
	if errors.Is(err, service.ErrSessionNotFound) || errors.Is(err, service.ErrSessionExpired) {
		logging.FromContext(r.Context()).Debug("Rejected login session", slog.Any("error", err))
		http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
		return r, nil
	}
	if err != nil {
		return r, err
	}

	ctx := context.WithValue(r.Context(), UserContextKey, user)
	ctx = context.WithValue(ctx, LoginSessionContextKey, cookie.Value)
	ctx = logging.With(ctx, slog.Int64("userID", user.ID))
	ctx = reporting.WithUserID(ctx, strconv.FormatInt(user.ID, 10))
	return r.WithContext(ctx), nil
}

// RequireAuth is middleware that requires a valid session
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, err := m.authenticate(w, r)
		if err != nil {
			respondWithServiceError(w, r, "Failed to validate login session", err)
			return
		}
		if GetUserFromContext(r.Context()) == nil {
			respondWithServiceError(w, r, "Unauthenticated request", service.ErrNotAuthenticated)
			return
		}
		next(w, r)
	}
}

// OptionalAuth attaches the user when a valid session exists and lets the
// request through either way.
func (m *Middleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r, err := m.authenticate(w, r)
		if err != nil {
			respondWithServiceError(w, r, "Failed to validate login session", err)
			return
		}
		next(w, r)
	}
}

// RateLimit rejects clients that exceed the configured request rate
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(security.GetClientIP(r)) {
			respondWithError(w, r, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.With(r.Context(),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(ctx))

		logging.FromContext(ctx).Info("Request",
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
	})
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetLoginSessionID returns the authenticated login session id, or "".
func GetLoginSessionID(ctx context.Context) string {
	id, _ := ctx.Value(LoginSessionContextKey).(string)
	return id
}
