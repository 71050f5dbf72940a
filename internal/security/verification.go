package security

import (
	"crypto/rand"
	"encoding/base64"
)

// verificationTokenBytes is the entropy of a registration verification token.
const verificationTokenBytes = 24

// NewVerificationToken returns a URL-safe random token correlating a web registration with a bot
// conversation. The encoding fits inside a Telegram /start payload (max 64 chars, [A-Za-z0-9_-]).
func NewVerificationToken() (string, error) {
	b := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
