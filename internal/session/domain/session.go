package domain

import "time"

// Session is a logged-in session created when a registration is materialized or re-entered.
type Session struct {
	ID               string
	UserID           string
	ExpiresAt        time.Time
	RevokedAt        *time.Time // nil when not revoked
	IPAddress        string
	RefreshJti       string // current refresh token jti for rotation
	RefreshTokenHash string // SHA-256 hash of current refresh token
	CreatedAt        time.Time
}

// Active reports whether the session is neither revoked nor expired at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
