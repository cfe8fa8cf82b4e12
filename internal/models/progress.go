package models

import "time"

// Progress is one monitored session's outcome
type Progress struct {
	ID            int64      `db:"id" json:"id"`
	UserID        int64      `db:"user_id" json:"user_id"`
	SessionTime   float64    `db:"session_time" json:"session_time"`
	LookAwayCount int        `db:"look_away_count" json:"look_away_count"`
	StartedAt     time.Time  `db:"started_at" json:"started_at"`
	EndedAt       *time.Time `db:"ended_at" json:"ended_at,omitempty"`
}

// IsOpen reports whether the session is still accepting look-away events
func (p *Progress) IsOpen() bool {
	return p.EndedAt == nil
}

// ActiveSession binds a login session to the progress record it is monitoring
type ActiveSession struct {
	LoginSessionID string    `db:"login_session_id"`
	UserID         int64     `db:"user_id"`
	ProgressID     int64     `db:"progress_id"`
	StartedAt      time.Time `db:"started_at"`
}

// ProgressSummary aggregates all of one user's progress records
type ProgressSummary struct {
	TotalTime      float64 `json:"total_time"`
	TotalLookAways int     `json:"total_look_aways"`
	Points         float64 `json:"points"`
	Sessions       int     `json:"sessions"`
}

// LeaderboardEntry is one ranked row of the leaderboard
type LeaderboardEntry struct {
	UserID         int64   `json:"user_id"`
	Username       string  `json:"username"`
	TotalTime      float64 `json:"total_time"`
	TotalLookAways int     `json:"total_look_aways"`
	Points         float64 `json:"points"`
}
