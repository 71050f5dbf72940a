// Package phone canonicalizes phone numbers so that the number typed into the web form and
// the number reported by the messaging bot compare equal.
package phone

import (
	"regexp"
	"strings"
)

var canonicalRe = regexp.MustCompile(`^\+\d{10,15}$`)

// Normalize returns the canonical form of raw. It keeps digits and a leading '+', maps the
// domestic prefixes 8 and 7 to +7, and prefixes bare 10-digit numbers with +7.
// Input that does not fit these shapes is returned stripped but otherwise unchanged.
// Normalize is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(s) + 2)
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	out := b.String()

	switch {
	case strings.HasPrefix(out, "8"):
		out = "+7" + out[1:]
	case strings.HasPrefix(out, "7"):
		out = "+" + out
	}
	if !strings.HasPrefix(out, "+") {
		switch {
		case len(out) == 10:
			out = "+7" + out
		case len(out) == 11 && out[0] == '7':
			out = "+" + out
		}
	}
	return out
}

// Valid reports whether canonical looks like a dialable international number (+ and 10-15 digits).
// It expects the output of Normalize.
func Valid(canonical string) bool {
	return canonicalRe.MatchString(canonical)
}

// Equal reports whether a and b refer to the same number after normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
