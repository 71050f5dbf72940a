package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadPEM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(path, []byte(testPrivateKeyPEM), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	testCases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"inline", testPrivateKeyPEM, false},
		{"inline with escaped newlines", strings.ReplaceAll(testPrivateKeyPEM, "\n", `\n`), false},
		{"file path", path, false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"missing file", filepath.Join(dir, "nope.pem"), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := LoadPEM(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatal("LoadPEM should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadPEM: %v", err)
			}
			if strings.Contains(string(b), `\n`) {
				t.Error("escaped newlines should be expanded")
			}
			if blk, _ := pem.Decode(b); blk == nil {
				t.Error("result does not decode as PEM")
			}
		})
	}
}

func TestParseKeys_RSA(t *testing.T) {
	priv, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if KeyAlg(pub) != "RS256" || KeyAlg(priv.Public()) != "RS256" {
		t.Errorf("KeyAlg = %q, want RS256", KeyAlg(pub))
	}
}

func TestParseKeys_ECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, _ := x509.MarshalECPrivateKey(key)
	privPEM := string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
	pubDER, _ := x509.MarshalPKIXPublicKey(&key.PublicKey)
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))

	if _, err := ParsePrivateKey(privPEM); err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if KeyAlg(pub) != "ES256" {
		t.Errorf("KeyAlg = %q, want ES256", KeyAlg(pub))
	}

	p, err := NewTokenProviderFromPEM(privPEM, pubPEM, "i", "a", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenProviderFromPEM: %v", err)
	}
	tok, _, _, err := p.IssueAccess("s", "u")
	if err != nil {
		t.Fatalf("IssueAccess ES256: %v", err)
	}
	if _, uid, err := p.ValidateAccess(tok); err != nil || uid != "u" {
		t.Errorf("ValidateAccess ES256: uid=%q err=%v", uid, err)
	}
}

func TestParseKeys_Invalid(t *testing.T) {
	bogus := "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----"
	for _, in := range []string{"-----BEGIN nothing", bogus} {
		if _, err := ParsePrivateKey(in); err == nil {
			t.Errorf("ParsePrivateKey(%q) should fail", in)
		}
		if _, err := ParsePublicKey(in); err == nil {
			t.Errorf("ParsePublicKey(%q) should fail", in)
		}
	}
	if KeyAlg("not a key") != "" {
		t.Error("KeyAlg of unsupported type should be empty")
	}
}

func TestNewTokenProviderFromPEM_KeyMismatch(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	der, _ := x509.MarshalECPrivateKey(key)
	otherPriv := string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))

	_, err = NewTokenProviderFromPEM(otherPriv, testPublicKeyPEM, "i", "a", time.Minute, time.Hour)
	if !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("err = %v, want ErrKeyMismatch", err)
	}

	signer, _ := ParsePrivateKey(testPrivateKeyPEM)
	pub, _ := ParsePublicKey(testPublicKeyPEM)
	if !MatchingPair(signer, pub) {
		t.Error("embedded test pair should match")
	}
}
