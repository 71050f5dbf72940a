package phone

import "testing"

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want string
	}{
		{"domestic 8 prefix", "89991234567", "+79991234567"},
		{"international", "+79991234567", "+79991234567"},
		{"formatted bare 7", "7 (999) 123-45-67", "+79991234567"},
		{"spaced with plus", "+7 999 123 45 67", "+79991234567"},
		{"dashes and 8", "8-999-123-45-67", "+79991234567"},
		{"ten digits", "9991234567", "+79991234567"},
		{"surrounding whitespace", "  +79991234567\t", "+79991234567"},
		{"inner plus dropped", "+7+999+1234567", "+79991234567"},
		{"foreign number kept", "+44 20 7946 0958", "+442079460958"},
		{"too short kept stripped", "12-34", "1234"},
		{"empty", "", ""},
		{"letters only", "call me", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.raw); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"89991234567", "+79991234567", "7 (999) 123-45-67", "9991234567",
		"123", "", "+", "8", "7", "+44 20 7946 0958", "0012345678901", "++++",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalize_DomesticFormsAgree(t *testing.T) {
	forms := []string{"89991234567", "+79991234567", "7 (999) 123-45-67", "+7 999 123 45 67", "999 123 45 67"}
	want := Normalize(forms[0])
	for _, f := range forms[1:] {
		if got := Normalize(f); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", f, got, want)
		}
	}
}

func TestValid(t *testing.T) {
	testCases := []struct {
		in   string
		want bool
	}{
		{"+79991234567", true},
		{"+442079460958", true},
		{"1234", false},
		{"+123", false},
		{"", false},
		{"+7999123456a", false},
	}
	for _, tc := range testCases {
		if got := Valid(tc.in); got != tc.want {
			t.Errorf("Valid(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal("8 (999) 123-45-67", "+79991234567") {
		t.Error("Equal should match domestic and international forms")
	}
	if Equal("+79991234567", "+79991234568") {
		t.Error("Equal should not match different numbers")
	}
}
