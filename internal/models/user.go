package models

import "time"

// User is a registered account
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// LoginSession is an authenticated browser or API session
type LoginSession struct {
	ID        string    `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsExpired checks if the session has expired
func (s *LoginSession) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt checks expiry against the given instant
func (s *LoginSession) IsExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
