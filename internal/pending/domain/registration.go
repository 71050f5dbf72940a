// Package domain defines registrations that wait for phone ownership proof before an account exists.
package domain

import "time"

// Registration is a pending registration awaiting bot confirmation.
// Phone is canonical and is not unique: a phone may be resubmitted.
type Registration struct {
	ID                string
	Phone             string
	VerificationToken string
	UserData          UserData
	Verified          bool
	VerifiedAt        *time.Time
	CreatedAt         time.Time
}

// UserData is the account payload captured at intake. It is immutable once stored.
type UserData struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Username     string `json:"username,omitempty"`
	Address      string `json:"address,omitempty"`
}

// Expired reports whether the registration is older than ttl at now. A non-positive ttl never expires.
func (r *Registration) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(r.CreatedAt) > ttl
}
