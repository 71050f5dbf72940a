// Package service establishes authenticated sessions for users that just completed registration.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storefront/backend/internal/security"
	sessiondomain "storefront/backend/internal/session/domain"
)

// SessionRepo is the minimal session repository needed by the issuer.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
}

// Tokens is the credential pair handed to the client after auto-login.
type Tokens struct {
	SessionID    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry
}

// Issuer creates a session row and the JWT pair bound to it.
type Issuer struct {
	sessions   SessionRepo
	tokens     *security.TokenProvider
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer returns an Issuer. refreshTTL bounds the session lifetime.
func NewIssuer(sessions SessionRepo, tokens *security.TokenProvider, refreshTTL time.Duration) *Issuer {
	return &Issuer{sessions: sessions, tokens: tokens, refreshTTL: refreshTTL, now: time.Now}
}

// Establish opens a new session for userID and returns its tokens. Only the refresh token hash is stored.
func (i *Issuer) Establish(ctx context.Context, userID, ipAddress string) (*Tokens, error) {
	sessionID := uuid.New().String()
	refreshToken, jti, _, err := i.tokens.IssueRefresh(sessionID, userID)
	if err != nil {
		return nil, err
	}
	accessToken, _, accessExp, err := i.tokens.IssueAccess(sessionID, userID)
	if err != nil {
		return nil, err
	}
	now := i.now().UTC()
	sess := &sessiondomain.Session{
		ID:               sessionID,
		UserID:           userID,
		ExpiresAt:        now.Add(i.refreshTTL),
		IPAddress:        ipAddress,
		RefreshJti:       jti,
		RefreshTokenHash: security.HashToken(refreshToken),
		CreatedAt:        now,
	}
	if err := i.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &Tokens{
		SessionID:    sessionID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExp,
	}, nil
}
