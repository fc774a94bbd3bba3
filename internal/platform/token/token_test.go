package token

import (
	"regexp"
	"testing"
)

var urlSafe = regexp.MustCompile(`^[a-z2-7]{26}$`)

func TestGeneratorTokensAreURLSafeAndDistinct(t *testing.T) {
	gen := NewGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		tok, err := gen.NewToken()
		if err != nil {
			t.Fatalf("new token: %v", err)
		}
		if !urlSafe.MatchString(tok) {
			t.Fatalf("token %q is not 26 lowercase base32 chars", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}

func TestSequenceFallsBackToRandom(t *testing.T) {
	seq := NewSequence("a", "b")
	for _, want := range []string{"a", "b"} {
		got, err := seq.NewToken()
		if err != nil || got != want {
			t.Fatalf("expected %q, got %q (%v)", want, got, err)
		}
	}
	got, err := seq.NewToken()
	if err != nil {
		t.Fatalf("fallback token: %v", err)
	}
	if !urlSafe.MatchString(got) {
		t.Fatalf("expected random fallback token, got %q", got)
	}
}
