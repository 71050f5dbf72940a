package security

import "testing"

func TestHashToken(t *testing.T) {
	a := HashToken("refresh-token-1")
	if a != HashToken("refresh-token-1") {
		t.Error("HashToken should be deterministic")
	}
	if len(a) != 64 {
		t.Errorf("len(hash) = %d, want 64 hex chars", len(a))
	}
	if a == HashToken("refresh-token-2") {
		t.Error("different tokens should hash differently")
	}
}

func TestTokenHashEqual(t *testing.T) {
	stored := HashToken("secret")
	testCases := []struct {
		name     string
		provided string
		stored   string
		want     bool
	}{
		{"match", "secret", stored, true},
		{"wrong token", "Secret", stored, false},
		{"empty provided", "", stored, false},
		{"empty stored", "secret", "", false},
		{"raw token as stored", "secret", "secret", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TokenHashEqual(tc.provided, tc.stored); got != tc.want {
				t.Errorf("TokenHashEqual = %v, want %v", got, tc.want)
			}
		})
	}
}
