package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	auditdomain "storefront/backend/internal/audit/domain"
	"storefront/backend/internal/events"
	"storefront/backend/internal/logger"
	pendingdomain "storefront/backend/internal/pending/domain"
	"storefront/backend/internal/phone"
	"storefront/backend/internal/server/reqctx"
	sessionservice "storefront/backend/internal/session/service"
	"storefront/backend/internal/tracing"
	userdomain "storefront/backend/internal/user/domain"
)

// Materialization branches.
const (
	BranchCreated  = "created"  // a new user row was inserted
	BranchLogin    = "login"    // the email already had an account
	BranchConflict = "conflict" // a concurrent check inserted the user first
	BranchRefused  = "refused"  // the email's account is bound to another phone; no session
)

const notifyTimeout = 5 * time.Second

// StatusResult is the answer to a verification poll. When Verified is false every other field is
// empty. BranchRefused is Verified without AutoLogin, User or Tokens: the user has to sign in.
type StatusResult struct {
	Verified  bool
	AutoLogin bool
	Branch    string
	User      *userdomain.User
	Tokens    *sessionservice.Tokens
}

// CheckStatus reports whether the registration identified by phone and token was confirmed in
// the bot. A confirmed registration is materialized into an account, a session is opened and
// the pending record is removed. Unknown, expired or unconfirmed registrations yield
// Verified=false, never an error.
//
// Errors: *ValidationError for empty input, *StoreError, or a wrapped session error.
func (s *Service) CheckStatus(ctx context.Context, rawPhone, token string) (res *StatusResult, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "registration.CheckStatus")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, "check status failed")
		} else {
			span.SetAttributes(attribute.Bool("registration.verified", res.Verified))
		}
		span.End()
	}()

	res, err = s.checkStatus(ctx, rawPhone, token)
	switch {
	case err != nil:
		s.metrics.StatusCheck("error")
	case res.Verified:
		s.metrics.StatusCheck("verified")
	default:
		s.metrics.StatusCheck("pending")
	}
	return res, err
}

func (s *Service) checkStatus(ctx context.Context, rawPhone, token string) (*StatusResult, error) {
	token = strings.TrimSpace(token)
	fields := make(map[string]string)
	if strings.TrimSpace(rawPhone) == "" {
		fields["phone"] = "phone is required"
	}
	if token == "" {
		fields["verificationToken"] = "verification token is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Message: "invalid verification check", Fields: fields}
	}

	canonical := phone.Normalize(rawPhone)
	reg, err := s.pending.FindByPhoneAndToken(ctx, canonical, token)
	if err != nil {
		return nil, &StoreError{Op: "pending.find_by_phone_and_token", Err: err}
	}
	if reg == nil || !reg.Verified || reg.Expired(s.now(), s.pendingTTL) {
		return &StatusResult{}, nil
	}
	return s.materialize(ctx, reg)
}

// materialize converts a verified registration into an account plus session. Email uniqueness in
// the users table makes repeated or concurrent runs converge on a single account.
func (s *Service) materialize(ctx context.Context, reg *pendingdomain.Registration) (*StatusResult, error) {
	log := logger.FromContext(ctx).With(zap.String("registration_id", reg.ID))
	data := reg.UserData

	u, err := s.users.GetByEmail(ctx, data.Email)
	if err != nil {
		return nil, &StoreError{Op: "users.get_by_email", Err: err}
	}
	branch := BranchLogin
	if u == nil {
		u, branch, err = s.createUser(ctx, reg)
		if err != nil {
			return nil, err
		}
	}
	if branch != BranchCreated && u.Phone != "" && !phone.Equal(u.Phone, reg.Phone) {
		return s.refuseLogin(ctx, reg, u), nil
	}

	ip, _ := reqctx.ClientIP(ctx)
	tokens, err := s.sessions.Establish(ctx, u.ID, ip)
	if err != nil {
		return nil, fmt.Errorf("establish session: %w", err)
	}
	res := &StatusResult{Verified: true, AutoLogin: true, Branch: branch, User: u, Tokens: tokens}

	// The response is ready; a failed delete leaves a verified record that only ever re-enters the login branch.
	if _, err := s.pending.Remove(ctx, reg.Phone, reg.VerificationToken); err != nil {
		log.Warn("pending registration not removed after materialization", zap.Error(err))
	}

	s.notifyAccountReady(ctx, reg.Phone)

	log.Info("registration materialized", zap.String("user_id", u.ID), zap.String("branch", branch))
	s.metrics.Materialization(branch)
	meta := fmt.Sprintf(`{"registrationId":%q,"branch":%q}`, reg.ID, branch)
	if branch == BranchCreated {
		s.logEvent(ctx, u.ID, auditdomain.ActionAccountMaterialized, auditdomain.ResourceUser, meta)
		s.events.Publish(events.Event{Type: events.TypeMaterialized, RegistrationID: reg.ID, UserID: u.ID})
	} else {
		s.logEvent(ctx, u.ID, auditdomain.ActionRegistrationLogin, auditdomain.ResourceUser, meta)
		s.events.Publish(events.Event{Type: events.TypeLogin, RegistrationID: reg.ID, UserID: u.ID})
	}
	return res, nil
}

// refuseLogin closes a verified registration whose email belongs to an account with a different
// phone. Proving one phone must not open a session for an account bound to another.
func (s *Service) refuseLogin(ctx context.Context, reg *pendingdomain.Registration, u *userdomain.User) *StatusResult {
	log := logger.FromContext(ctx).With(zap.String("registration_id", reg.ID), zap.String("user_id", u.ID))
	if _, err := s.pending.Remove(ctx, reg.Phone, reg.VerificationToken); err != nil {
		log.Warn("pending registration not removed after refused login", zap.Error(err))
	}
	log.Warn("auto-login refused: account phone differs from verified phone")
	s.metrics.Materialization(BranchRefused)
	s.logEvent(ctx, u.ID, auditdomain.ActionRegistrationLoginRefused, auditdomain.ResourceUser,
		fmt.Sprintf(`{"registrationId":%q}`, reg.ID))
	return &StatusResult{Verified: true, Branch: BranchRefused}
}

func (s *Service) notifyAccountReady(ctx context.Context, canonicalPhone string) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := s.notifier.AccountReady(ctx, canonicalPhone); err != nil {
		logger.FromContext(ctx).Warn("account ready notification failed", zap.Error(err))
	}
}

// createUser inserts the account. Losing the insert race to a concurrent check reloads the winner.
func (s *Service) createUser(ctx context.Context, reg *pendingdomain.Registration) (*userdomain.User, string, error) {
	now := s.now().UTC()
	data := reg.UserData
	u := &userdomain.User{
		ID:            uuid.New().String(),
		Email:         data.Email,
		PasswordHash:  data.PasswordHash,
		Phone:         reg.Phone,
		PhoneVerified: true,
		FirstName:     data.FirstName,
		LastName:      data.LastName,
		Username:      data.Username,
		Address:       data.Address,
		Status:        userdomain.UserStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.users.Create(ctx, u)
	if err == nil {
		return u, BranchCreated, nil
	}
	if !errors.Is(err, userdomain.ErrEmailTaken) {
		return nil, "", &StoreError{Op: "users.create", Err: err}
	}

	winner, err := s.users.GetByEmail(ctx, data.Email)
	if err != nil {
		return nil, "", &StoreError{Op: "users.get_by_email", Err: err}
	}
	if winner == nil {
		return nil, "", &StoreError{Op: "users.create", Err: ErrMaterializationConflict}
	}
	return winner, BranchConflict, nil
}
