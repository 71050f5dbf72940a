package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrEmailTaken is returned by Create when another user already owns the email.
var ErrEmailTaken = errors.New("email already registered")

// User is the core user entity.
type User struct {
	ID            string
	Email         string
	PasswordHash  string // bcrypt; never plaintext
	Phone         string // canonical form
	PhoneVerified bool   // true once ownership was proven through the bot
	FirstName     string
	LastName      string
	Username      string
	Address       string
	Status        UserStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// DisplayName joins first and last name, falling back to the username.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// NormalizeEmail lowercases and trims an email for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
