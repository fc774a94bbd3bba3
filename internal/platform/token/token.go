// Package token generates public poll tokens.
//
// Tokens are UUIDv4 random bytes encoded as lowercase base32 (RFC 4648)
// without padding: 26 characters, URL-safe, 122 bits of entropy.
package token

import (
	"encoding/base32"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

type Generator struct{}

func NewGenerator() Generator { return Generator{} }

func (Generator) NewToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("read random token bytes: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(id[:])), nil
}

// Fixed always hands out the same token. Used for well-known demo polls.
type Fixed string

func (f Fixed) NewToken() (string, error) { return string(f), nil }

// Sequence hands out the given tokens in order, then falls back to random
// ones.
type Sequence struct {
	mu     sync.Mutex
	tokens []string
	next   Generator
}

func NewSequence(tokens ...string) *Sequence {
	return &Sequence{tokens: tokens}
}

func (s *Sequence) NewToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tokens) == 0 {
		return s.next.NewToken()
	}
	t := s.tokens[0]
	s.tokens = s.tokens[1:]
	return t, nil
}
