package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	password := []byte("Secret123")
	hash, err := h.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "" || strings.Contains(hash, "Secret123") {
		t.Fatalf("Hash returned %q", hash)
	}
	if err := h.Compare(hash, password); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if err := h.Compare(hash, []byte("secret123")); err == nil {
		t.Fatal("Compare with wrong password should fail")
	}
}

func TestNewHasher_ClampsCost(t *testing.T) {
	testCases := []struct {
		in, want int
	}{
		{0, bcrypt.DefaultCost},
		{-1, bcrypt.DefaultCost},
		{2, bcrypt.MinCost},
		{12, 12},
		{40, bcrypt.MaxCost},
	}
	for _, tc := range testCases {
		if got := NewHasher(tc.in).Cost; got != tc.want {
			t.Errorf("NewHasher(%d).Cost = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestHasher_EmptyPassword(t *testing.T) {
	if _, err := NewHasher(bcrypt.MinCost).Hash(nil); err != ErrEmptyPassword {
		t.Errorf("Hash(nil) = %v, want ErrEmptyPassword", err)
	}
}
