// Package bot correlates messaging-bot conversations with pending registrations: a chat opened
// through a registration deep link proves phone ownership by sharing its own contact.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"storefront/backend/internal/audit"
	auditdomain "storefront/backend/internal/audit/domain"
	"storefront/backend/internal/events"
	"storefront/backend/internal/metrics"
	pendingrepo "storefront/backend/internal/pending/repository"
	"storefront/backend/internal/phone"
	"storefront/backend/internal/tracing"
)

// Outcome is the result of a contact confirmation.
type Outcome int

const (
	OutcomeInvalidLink Outcome = iota
	OutcomeVerified
	OutcomeAlreadyVerified
	OutcomePhoneMismatch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeVerified:
		return "verified"
	case OutcomeAlreadyVerified:
		return "already_verified"
	case OutcomePhoneMismatch:
		return "phone_mismatch"
	default:
		return "invalid_link"
	}
}

func (o Outcome) reply() string {
	switch o {
	case OutcomeVerified:
		return msgVerified
	case OutcomeAlreadyVerified:
		return msgAlreadyVerified
	case OutcomePhoneMismatch:
		return msgPhoneMismatch
	default:
		return msgInvalidLink
	}
}

// Messenger delivers replies to a chat.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	// RequestContact sends text with a one-tap "share contact" keyboard.
	RequestContact(ctx context.Context, chatID int64, text, button string) error
}

// Conversations remembers which verification token each chat was opened with, and which chat
// confirmed each phone.
type Conversations interface {
	SaveToken(ctx context.Context, chatID int64, token string) error
	Token(ctx context.Context, chatID int64) (string, error)
	RememberChat(ctx context.Context, chatID int64, phone string) error
	ChatForPhone(ctx context.Context, phone string) (chatID int64, ok bool, err error)
}

// Contact is a shared-contact message, independent of the messaging platform.
type Contact struct {
	ChatID        int64
	SenderID      int64
	ContactUserID int64 // 0 when the platform did not attach an account to the contact
	PhoneNumber   string
}

// Deps are the collaborators of Bridge. Audit, Events and Metrics are optional.
type Deps struct {
	Pending       pendingrepo.Repository
	Conversations Conversations
	Messenger     Messenger
	Audit         audit.AuditLogger
	Events        *events.Publisher
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// Bridge handles the bot side of registration.
type Bridge struct {
	pending    pendingrepo.Repository
	convs      Conversations
	messenger  Messenger
	audit      audit.AuditLogger
	events     *events.Publisher
	metrics    *metrics.Metrics
	log        *zap.Logger
	pendingTTL time.Duration
	now        func() time.Time
}

// NewBridge returns a Bridge. Registrations older than pendingTTL are treated as unknown.
func NewBridge(deps Deps, pendingTTL time.Duration) *Bridge {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		pending:    deps.Pending,
		convs:      deps.Conversations,
		messenger:  deps.Messenger,
		audit:      deps.Audit,
		events:     deps.Events,
		metrics:    deps.Metrics,
		log:        log,
		pendingTTL: pendingTTL,
		now:        time.Now,
	}
}

// HandleStart processes "/start <token>". A known, live token is bound to the chat and the user
// is asked to share their contact; anything else gets the invalid-link reply. Nothing in the
// pending store is modified.
func (b *Bridge) HandleStart(ctx context.Context, chatID int64, payload string) error {
	token := strings.TrimSpace(payload)
	if token == "" {
		return b.messenger.SendText(ctx, chatID, msgHelp)
	}
	reg, err := b.pending.FindByToken(ctx, token)
	if err != nil {
		return fmt.Errorf("find registration by token: %w", err)
	}
	if reg == nil || reg.Expired(b.now(), b.pendingTTL) {
		return b.messenger.SendText(ctx, chatID, msgInvalidLink)
	}
	if reg.Verified {
		return b.messenger.SendText(ctx, chatID, msgAlreadyVerified)
	}
	if err := b.convs.SaveToken(ctx, chatID, token); err != nil {
		return fmt.Errorf("save conversation token: %w", err)
	}
	return b.messenger.RequestContact(ctx, chatID, msgShareContact, msgShareButton)
}

// HandleContact processes a shared contact. Only the sender's own contact is accepted.
func (b *Bridge) HandleContact(ctx context.Context, c Contact) error {
	if c.ContactUserID != 0 && c.ContactUserID != c.SenderID {
		b.metrics.BotVerification("foreign_contact")
		return b.messenger.SendText(ctx, c.ChatID, msgForeignContact)
	}
	token, err := b.convs.Token(ctx, c.ChatID)
	if err != nil {
		return fmt.Errorf("load conversation token: %w", err)
	}
	if token == "" {
		b.metrics.BotVerification("no_conversation")
		return b.messenger.SendText(ctx, c.ChatID, msgNoConversation)
	}
	outcome, err := b.ConfirmContact(ctx, c.ChatID, token, c.PhoneNumber)
	if err != nil {
		return err
	}
	return b.messenger.SendText(ctx, c.ChatID, outcome.reply())
}

// HandleOther answers any message that is neither /start nor a contact.
func (b *Bridge) HandleOther(ctx context.Context, chatID int64) error {
	return b.messenger.SendText(ctx, chatID, msgHelp)
}

// ConfirmContact marks the registration for (rawPhone, token) verified. The conditional update
// in the store decides success; a false result is classified by looking the token up.
// Confirming an already verified registration with the same phone is OutcomeAlreadyVerified.
// An unknown or expired token mutates nothing.
func (b *Bridge) ConfirmContact(ctx context.Context, chatID int64, token, rawPhone string) (outcome Outcome, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "bot.ConfirmContact")
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, "confirm contact failed")
			b.metrics.BotVerification("error")
		} else {
			span.SetAttributes(attribute.String("bot.outcome", outcome.String()))
			b.metrics.BotVerification(outcome.String())
		}
		span.End()
	}()

	canonical := phone.Normalize(rawPhone)
	reg, err := b.pending.FindByToken(ctx, token)
	if err != nil {
		return OutcomeInvalidLink, fmt.Errorf("find registration by token: %w", err)
	}
	if reg == nil || reg.Expired(b.now(), b.pendingTTL) {
		return OutcomeInvalidLink, nil
	}
	log := b.log.With(zap.String("registration_id", reg.ID), zap.Int64("chat_id", chatID))

	ok, err := b.pending.MarkVerified(ctx, canonical, token)
	if err != nil {
		return OutcomeInvalidLink, fmt.Errorf("mark verified: %w", err)
	}
	meta := fmt.Sprintf(`{"registrationId":%q}`, reg.ID)
	if ok {
		if err := b.convs.RememberChat(ctx, chatID, canonical); err != nil {
			log.Warn("verified chat not remembered", zap.Error(err))
		}
		log.Info("phone verified through bot")
		b.logEvent(ctx, auditdomain.ActionPhoneVerified, meta)
		b.events.Publish(events.Event{Type: events.TypeVerified, RegistrationID: reg.ID})
		return OutcomeVerified, nil
	}

	if !phone.Equal(reg.Phone, canonical) {
		log.Info("shared contact does not match registered phone")
		b.logEvent(ctx, auditdomain.ActionPhoneMismatch, meta)
		return OutcomePhoneMismatch, nil
	}
	if reg.Verified {
		return OutcomeAlreadyVerified, nil
	}
	// The row matched on lookup but not on update: it was consumed or superseded in between.
	again, err := b.pending.FindByToken(ctx, token)
	if err != nil {
		return OutcomeInvalidLink, fmt.Errorf("find registration by token: %w", err)
	}
	if again != nil && again.Verified && phone.Equal(again.Phone, canonical) {
		return OutcomeAlreadyVerified, nil
	}
	return OutcomeInvalidLink, nil
}

// AccountReady tells the chat that confirmed phone that the account was opened on the site.
// Phones confirmed outside this bot, or whose chat was forgotten, are skipped.
func (b *Bridge) AccountReady(ctx context.Context, rawPhone string) error {
	chatID, ok, err := b.convs.ChatForPhone(ctx, phone.Normalize(rawPhone))
	if err != nil {
		return fmt.Errorf("load chat for phone: %w", err)
	}
	if !ok {
		return nil
	}
	return b.messenger.SendText(ctx, chatID, msgAccountReady)
}

func (b *Bridge) logEvent(ctx context.Context, action, metadata string) {
	if b.audit != nil {
		b.audit.LogEvent(ctx, "", action, auditdomain.ResourcePendingRegistration, metadata)
	}
}
