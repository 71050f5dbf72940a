package domain

import "time"

// Registration lifecycle actions recorded in the audit log.
const (
	ActionRegistrationRequested    = "registration_requested"
	ActionPhoneVerified            = "phone_verified"
	ActionPhoneMismatch            = "phone_mismatch"
	ActionAccountMaterialized      = "account_materialized"
	ActionRegistrationLogin        = "registration_login"
	ActionRegistrationLoginRefused = "registration_login_refused"
)

// Audited resources.
const (
	ResourcePendingRegistration = "pending_registration"
	ResourceUser                = "user"
)

// AuditLog represents an audit event. UserID is empty before an account exists.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
