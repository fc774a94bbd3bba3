package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrNotFound           = errors.New("user not found")
)

type Service struct {
	repo     Repository
	hashCost int
	logger   *slog.Logger
}

type Option func(*Service)

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, hashCost: bcrypt.DefaultCost, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	username, password = normalize(username, password)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := hashPassword(password, s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{Username: username, Credential: hash}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies the password and upgrades a legacy plaintext credential to
// bcrypt on success.
func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	username, password = normalize(username, password)

	u, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.Credential == nil || !u.Credential.Verify(password) {
		return nil, ErrInvalidCredentials
	}

	if u.Credential.NeedsRehash() {
		hash, err := hashPassword(password, s.hashCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		if err := s.repo.UpdateCredential(ctx, u.ID, hash); err != nil {
			return nil, err
		}
		u.Credential = hash
		s.logger.Info("upgraded legacy credential", "user_id", u.ID)
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func normalize(username, password string) (string, string) {
	return strings.ToLower(strings.TrimSpace(username)), strings.TrimSpace(password)
}
