package service

import (
	"regexp"
	"strings"
	"unicode"

	"storefront/backend/internal/phone"
)

const minPasswordLength = 8

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// validateInput checks required fields and formats. It returns nil or a *ValidationError
// listing every offending field.
func validateInput(in *RegisterInput) error {
	fields := make(map[string]string)
	if strings.TrimSpace(in.Email) == "" {
		fields["email"] = "email is required"
	} else if !emailRe.MatchString(strings.TrimSpace(in.Email)) {
		fields["email"] = "invalid email format"
	}
	if in.Password == "" {
		fields["password"] = "password is required"
	}
	if strings.TrimSpace(in.FirstName) == "" {
		fields["firstName"] = "first name is required"
	}
	if strings.TrimSpace(in.Phone) == "" {
		fields["phone"] = "phone is required"
	} else if !phone.Valid(phone.Normalize(in.Phone)) {
		fields["phone"] = "invalid phone number"
	}
	if len(fields) > 0 {
		return &ValidationError{Message: "invalid registration request", Fields: fields}
	}
	return nil
}

// validatePassword enforces length, a digit and an uppercase letter.
func validatePassword(password string) error {
	var reasons []string
	if len([]rune(password)) < minPasswordLength {
		reasons = append(reasons, "must be at least 8 characters")
	}
	var hasDigit, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}
	if !hasDigit {
		reasons = append(reasons, "must contain a digit")
	}
	if !hasUpper {
		reasons = append(reasons, "must contain an uppercase letter")
	}
	if len(reasons) > 0 {
		return &WeakPasswordError{Reasons: reasons}
	}
	return nil
}
