package session

import (
	"strings"
	"testing"
)

func TestGenerateRoomCode_LengthAndAlphabet(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateRoomCode()
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("want %d chars, got %q", CodeLength, code)
		}
		for _, c := range code {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
	}
}

func TestAlphabet_ExcludesConfusableSymbols(t *testing.T) {
	for _, banned := range "0O1I" {
		if strings.ContainsRune(Alphabet, banned) {
			t.Fatalf("alphabet must not contain %q", banned)
		}
	}
	if len(Alphabet) != 32 {
		t.Fatalf("want 32 symbols, got %d", len(Alphabet))
	}
}

func TestSessionID_NormalizesCase(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "ABC234", want: "ff-quiz-ABC234"},
		{in: "abc234", want: "ff-quiz-ABC234"},
		{in: "  abC234 ", want: "ff-quiz-ABC234"},
	}
	for _, tc := range cases {
		if got := SessionID(tc.in); got != tc.want {
			t.Fatalf("SessionID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
