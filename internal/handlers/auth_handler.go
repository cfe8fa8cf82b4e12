package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"lookaway/internal/logging"
	"lookaway/internal/models"
	"lookaway/internal/security"
	"lookaway/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// readCredentials accepts a JSON body or a classic form post.
func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, error) {
	var c credentials
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&c)
		return c, err
	}
	if err := r.ParseForm(); err != nil {
		return c, err
	}
	c.Username = r.FormValue("username")
	c.Password = r.FormValue("password")
	return c, nil
}

func (h *AuthHandler) startLogin(w http.ResponseWriter, r *http.Request, session *models.LoginSession, user *models.User) {
	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Register handles registration and logs the new user in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(w, r)
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	if _, err := h.authService.Register(r.Context(), creds.Username, creds.Password); err != nil {
		respondWithServiceError(w, r, "Registration failed", err)
		return
	}

	session, user, err := h.authService.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		// Registration succeeded but login failed
		respondWithServiceError(w, r, "Login after registration failed", err)
		return
	}
	h.startLogin(w, r, session, user)
}

// Login handles login submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	creds, err := readCredentials(w, r)
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidFormData, "", err)
		return
	}

	session, user, err := h.authService.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			respondWithServiceError(w, r, "Login failed", err)
			return
		}
		logging.FromContext(r.Context()).Info("Failed login attempt", slog.String("ip", security.GetClientIP(r)))
		respondWithError(w, r, http.StatusUnauthorized, "Invalid username or password", "", nil)
		return
	}
	h.startLogin(w, r, session, user)
}

// Logout handles logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			respondWithServiceError(w, r, "Failed to logout", err)
			return
		}
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type homeResponse struct {
	Message string        `json:"message"`
	User    *userResponse `json:"user,omitempty"`
}

// Home greets the visitor
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	resp := homeResponse{Message: "Welcome to lookaway"}
	if user := GetUserFromContext(r.Context()); user != nil {
		resp.Message = "Welcome back, " + user.Username
		resp.User = &userResponse{ID: user.ID, Username: user.Username}
	}
	writeJSON(w, http.StatusOK, resp)
}
