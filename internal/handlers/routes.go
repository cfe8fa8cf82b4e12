package handlers

import "net/http"

// NewRouter registers every route on a new mux.
func NewRouter(m *Middleware, auth *AuthHandler, sessions *SessionHandler, startup *StartupStatus) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /readyz", startup)

	// Public routes
	mux.HandleFunc("GET /", m.OptionalAuth(auth.Home))
	mux.HandleFunc("POST /register", m.RateLimit(auth.Register))
	mux.HandleFunc("POST /login", m.RateLimit(auth.Login))
	mux.HandleFunc("POST /logout", auth.Logout)
	mux.HandleFunc("GET /leaderboard", sessions.Leaderboard)

	// Monitoring sessions. Authentication is resolved per request so that
	// bearer tokens and the routing mode can apply.
	mux.HandleFunc("POST /start_session", m.OptionalAuth(sessions.StartSession))
	mux.HandleFunc("POST /update_lookaway", m.OptionalAuth(sessions.UpdateLookAway))
	mux.HandleFunc("POST /end_session", m.OptionalAuth(sessions.EndSession))

	// Protected routes
	mux.HandleFunc("GET /dashboard", m.RequireAuth(sessions.Dashboard))

	return mux
}
