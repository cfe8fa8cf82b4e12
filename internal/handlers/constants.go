package handlers

const (
	SessionCookieName = "session_id"

	ErrInvalidFormData     = "Invalid form data"
	ErrUnauthorized        = "Unauthorized"
	ErrNoActiveSession     = "No active session"
	ErrServiceUnavailable  = "Service temporarily unavailable"
	ErrInternalServerError = "Internal server error"
	ErrTooManyRequests     = "Too many requests"
)
