package service

import (
	"errors"
	"sort"
	"strings"
)

// Sentinel errors; the HTTP handler maps them to status codes.
var (
	// ErrDuplicateAccount is returned by Register when the email already belongs to an account.
	ErrDuplicateAccount = errors.New("an account with this email already exists")
	// ErrMaterializationConflict marks a lost account-creation race that could not be resolved by reloading the winner.
	ErrMaterializationConflict = errors.New("account materialization conflict")
)

// ValidationError reports missing or malformed input. Fields maps field name to a message.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return e.Message + ": " + strings.Join(names, ", ")
}

// WeakPasswordError reports a password that does not meet the strength policy.
type WeakPasswordError struct {
	Reasons []string
}

func (e *WeakPasswordError) Error() string {
	return "password too weak: " + strings.Join(e.Reasons, "; ")
}

// StoreError wraps a storage failure with the operation that failed. Callers see a generic
// internal error; Op and Err are for logs.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// kind classifies an error returned by the service.
type kind int

const (
	kindNone kind = iota
	kindValidation
	kindWeakPassword
	kindDuplicate
	kindInternal
)

// IsClientError reports whether err was caused by the request itself (validation, weak password,
// duplicate account) rather than by the system.
func IsClientError(err error) bool {
	switch kindOf(err) {
	case kindValidation, kindWeakPassword, kindDuplicate:
		return true
	}
	return false
}

func kindOf(err error) kind {
	var validationErr *ValidationError
	var weakErr *WeakPasswordError
	switch {
	case err == nil:
		return kindNone
	case errors.As(err, &validationErr):
		return kindValidation
	case errors.As(err, &weakErr):
		return kindWeakPassword
	case errors.Is(err, ErrDuplicateAccount):
		return kindDuplicate
	default:
		return kindInternal
	}
}
