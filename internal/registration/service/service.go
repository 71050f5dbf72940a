// Package service implements deferred registration: intake stores a pending registration,
// and the status check turns a bot-verified registration into an account and a session.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storefront/backend/internal/audit"
	"storefront/backend/internal/events"
	"storefront/backend/internal/metrics"
	pendingrepo "storefront/backend/internal/pending/repository"
	"storefront/backend/internal/security"
	sessionservice "storefront/backend/internal/session/service"
	userdomain "storefront/backend/internal/user/domain"
)

// UserRepo is the minimal user repository needed by the registration service.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// SessionIssuer opens an authenticated session for a user.
type SessionIssuer interface {
	Establish(ctx context.Context, userID, ipAddress string) (*sessionservice.Tokens, error)
}

// PasswordHasher hashes plaintext passwords for storage.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
}

// AccountNotifier tells the user, out of band, that their account is ready.
type AccountNotifier interface {
	AccountReady(ctx context.Context, phone string) error
}

// Deps are the collaborators of Service. Audit, Events, Metrics and Notifier are optional.
type Deps struct {
	Pending  pendingrepo.Repository
	Users    UserRepo
	Sessions SessionIssuer
	Hasher   PasswordHasher
	Audit    audit.AuditLogger
	Events   *events.Publisher
	Metrics  *metrics.Metrics
	Notifier AccountNotifier
	Logger   *zap.Logger
}

// Service implements Register and CheckStatus.
type Service struct {
	pending    pendingrepo.Repository
	users      UserRepo
	sessions   SessionIssuer
	hasher     PasswordHasher
	audit      audit.AuditLogger
	events     *events.Publisher
	metrics    *metrics.Metrics
	notifier   AccountNotifier
	log        *zap.Logger
	pendingTTL time.Duration
	newToken   func() (string, error)
	now        func() time.Time
}

// New returns a Service. pendingTTL is the age after which a pending registration is treated as gone.
func New(deps Deps, pendingTTL time.Duration) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		pending:    deps.Pending,
		users:      deps.Users,
		sessions:   deps.Sessions,
		hasher:     deps.Hasher,
		audit:      deps.Audit,
		events:     deps.Events,
		metrics:    deps.Metrics,
		notifier:   deps.Notifier,
		log:        log,
		pendingTTL: pendingTTL,
		newToken:   security.NewVerificationToken,
		now:        time.Now,
	}
}

func (s *Service) logEvent(ctx context.Context, userID, action, resource, metadata string) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, userID, action, resource, metadata)
	}
}
