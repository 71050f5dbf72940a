package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	auditdomain "storefront/backend/internal/audit/domain"
	"storefront/backend/internal/events"
	"storefront/backend/internal/logger"
	pendingdomain "storefront/backend/internal/pending/domain"
	"storefront/backend/internal/phone"
	"storefront/backend/internal/tracing"
	userdomain "storefront/backend/internal/user/domain"
)

// RegisterInput is a registration form submission. Password is plaintext and never stored or logged.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Username  string
	Address   string
}

// RegisterResult carries what the client needs to open the bot and poll for completion.
type RegisterResult struct {
	RegistrationID string
	Token          string
	Phone          string // canonical
}

// Register validates in, hashes the password and stores a pending registration keyed by the
// canonical phone and a fresh verification token. It never creates a user.
//
// Errors: *ValidationError, *WeakPasswordError, ErrDuplicateAccount, *StoreError.
func (s *Service) Register(ctx context.Context, in RegisterInput) (res *RegisterResult, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "registration.Register")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, "register failed")
		}
		span.End()
	}()

	res, err = s.register(ctx, in)
	s.metrics.Registration(registerResultLabel(err))
	return res, err
}

func (s *Service) register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	email := userdomain.NormalizeEmail(in.Email)
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, &StoreError{Op: "users.get_by_email", Err: err}
	}
	if existing != nil {
		return nil, ErrDuplicateAccount
	}

	hash, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("verification token: %w", err)
	}
	canonical := phone.Normalize(in.Phone)

	data := pendingdomain.UserData{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Username:     strings.TrimSpace(in.Username),
		Address:      strings.TrimSpace(in.Address),
	}
	id, err := s.pending.Put(ctx, canonical, token, data)
	if err != nil {
		return nil, &StoreError{Op: "pending.put", Err: err}
	}

	logger.FromContext(ctx).Info("pending registration stored", zap.String("registration_id", id))
	s.logEvent(ctx, "", auditdomain.ActionRegistrationRequested, auditdomain.ResourcePendingRegistration,
		fmt.Sprintf(`{"registrationId":%q}`, id))
	s.events.Publish(events.Event{Type: events.TypeRequested, RegistrationID: id})

	return &RegisterResult{RegistrationID: id, Token: token, Phone: canonical}, nil
}

func registerResultLabel(err error) string {
	switch kindOf(err) {
	case kindNone:
		return "accepted"
	case kindValidation:
		return "invalid"
	case kindWeakPassword:
		return "weak_password"
	case kindDuplicate:
		return "duplicate"
	default:
		return "error"
	}
}
