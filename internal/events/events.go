// Package events publishes registration lifecycle events to Kafka for downstream consumers
// (CRM sync, analytics). Events carry identifiers only, never contact data or secrets.
package events

import (
	"context"
	"time"
)

// Type names a registration lifecycle event.
type Type string

const (
	TypeRequested    Type = "registration.requested"
	TypeVerified     Type = "registration.verified"
	TypeMaterialized Type = "registration.materialized"
	TypeLogin        Type = "registration.login"
)

// Event is the JSON payload written to the registration topic.
type Event struct {
	Type           Type      `json:"type"`
	RegistrationID string    `json:"registrationId,omitempty"`
	UserID         string    `json:"userId,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Emitter sends a single event. Implementations may block briefly.
type Emitter interface {
	Emit(ctx context.Context, ev Event) error
	Close() error
}
