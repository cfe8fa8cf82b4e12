package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"lookaway/internal/logging"
	"lookaway/internal/reporting"
	"lookaway/internal/security"
	"lookaway/internal/service"
	"lookaway/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.L().Warn("Failed to encode response", slog.String("error", err.Error()))
	}
}

// wantsJSON is false only for plain browser requests, which get redirects
// instead of error bodies.
func wantsJSON(r *http.Request) bool {
	if security.BearerToken(r) != "" {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func respondWithError(w http.ResponseWriter, r *http.Request, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		if status >= http.StatusInternalServerError {
			reporting.Report(r.Context(), err, map[string]string{"message": logMsg})
		} else {
			logging.FromContext(r.Context()).Info(logMsg, slog.String("error", err.Error()))
		}
	}

	writeJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps a service error onto a response.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, logMsg string, err error) {
	var verr validation.ValidationError

	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		if !wantsJSON(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		respondWithError(w, r, http.StatusUnauthorized, ErrUnauthorized, logMsg, err)
	case errors.Is(err, service.ErrNoActiveSession):
		if !wantsJSON(r) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		respondWithError(w, r, http.StatusConflict, ErrNoActiveSession, logMsg, err)
	case errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, r, http.StatusUnauthorized, ErrUnauthorized, logMsg, err)
	case errors.Is(err, service.ErrUsernameTaken):
		respondWithError(w, r, http.StatusConflict, err.Error(), logMsg, err)
	case errors.As(err, &verr):
		respondWithError(w, r, http.StatusBadRequest, verr.Message, logMsg, err)
	case errors.Is(err, service.ErrStoreUnavailable):
		respondWithError(w, r, http.StatusServiceUnavailable, ErrServiceUnavailable, logMsg, err)
	default:
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}
