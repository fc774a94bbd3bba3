// Package auth turns credentials into bearer tokens and bearer tokens back
// into account ids.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"meet-vote/internal/domain/user"
	jwtpkg "meet-vote/internal/platform/jwt"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type Session struct {
	AccessToken string
	User        *user.User
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (Session, error)
	// Identify resolves the caller of r or returns ErrUnauthenticated.
	Identify(r *http.Request) (int64, error)
}

type JWTAuthenticator struct {
	users  *user.Service
	tokens *jwtpkg.Manager
	ttl    time.Duration
}

func NewJWTAuthenticator(users *user.Service, tokens *jwtpkg.Manager, ttl time.Duration) *JWTAuthenticator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTAuthenticator{users: users, tokens: tokens, ttl: ttl}
}

func (a *JWTAuthenticator) Login(ctx context.Context, username, password string) (Session, error) {
	u, err := a.users.Login(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	tok, err := a.tokens.Generate(u.ID, u.Username, a.ttl)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	return Session{AccessToken: tok, User: u}, nil
}

func (a *JWTAuthenticator) Identify(r *http.Request) (int64, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return 0, ErrUnauthenticated
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return 0, ErrUnauthenticated
	}

	claims, err := a.tokens.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return claims.UserID, nil
}

var _ Authenticator = (*JWTAuthenticator)(nil)
