package models

import "time"

// SessionHandle identifies one monitoring session. It is handed to the
// monitoring client when the session starts and presented with every
// look-away event and at session end.
type SessionHandle struct {
	ProgressID int64     `json:"progress_id"`
	UserID     int64     `json:"user_id"`
	StartedAt  time.Time `json:"started_at"`
}
