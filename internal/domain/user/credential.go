package user

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Credential is a stored password in one of the formats accounts may
// carry.
type Credential interface {
	Verify(password string) bool
	// NeedsRehash reports whether a successful Verify should be followed by
	// storing a fresh bcrypt hash.
	NeedsRehash() bool
	Stored() string
}

type HashedCredential string

func (h HashedCredential) Verify(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(h), []byte(password)) == nil
}

func (HashedCredential) NeedsRehash() bool { return false }

func (h HashedCredential) Stored() string { return string(h) }

// LegacyPlaintextCredential is a password stored before hashing was
// introduced.
type LegacyPlaintextCredential string

func (p LegacyPlaintextCredential) Verify(password string) bool {
	return subtle.ConstantTimeCompare([]byte(p), []byte(password)) == 1
}

func (LegacyPlaintextCredential) NeedsRehash() bool { return true }

func (p LegacyPlaintextCredential) Stored() string { return string(p) }

// ParseCredential classifies a stored password column.
func ParseCredential(stored string) Credential {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(stored, prefix) {
			return HashedCredential(stored)
		}
	}
	return LegacyPlaintextCredential(stored)
}

func hashPassword(password string, cost int) (HashedCredential, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return HashedCredential(hash), nil
}
