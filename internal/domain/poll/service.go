package poll

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"meet-vote/internal/platform/clock"
	"meet-vote/internal/retry"
)

// tokenAttempts bounds how often Create retries after a public token
// collision.
const tokenAttempts = 3

type TokenGenerator interface {
	NewToken() (string, error)
}

type Service struct {
	store  Store
	clock  clock.Clock
	tokens TokenGenerator
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store Store, tokens TokenGenerator, opts ...Option) *Service {
	s := &Service{
		store:  store,
		clock:  clock.System(),
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, ownerID int64, in Input) (OwnerView, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return OwnerView{}, err
	}

	var created Poll
	err = retry.DoWithRetry(ctx, tokenAttempts, 0, func() error {
		tok, err := s.tokens.NewToken()
		if err != nil {
			return retry.Stop(err)
		}
		p := Poll{
			OwnerID:     ownerID,
			Title:       in.Title,
			Description: in.Description,
			Token:       tok,
			CreatedAt:   s.now(),
			Dates:       in.Dates,
		}
		err = s.store.WithinTx(ctx, func(repo Repository) error {
			return repo.CreatePoll(ctx, &p)
		})
		if errors.Is(err, ErrConflict) {
			s.logger.Warn("poll token collision", "owner_id", ownerID)
			return err
		}
		if err != nil {
			return retry.Stop(err)
		}
		created = p
		return nil
	})
	if err != nil {
		return OwnerView{}, err
	}
	return NewOwnerView(created, 0), nil
}

func (s *Service) Update(ctx context.Context, ownerID, pollID int64, in Input) (OwnerView, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return OwnerView{}, err
	}

	var view OwnerView
	err = s.store.WithinTx(ctx, func(repo Repository) error {
		p, err := repo.GetOwned(ctx, pollID, ownerID)
		if err != nil {
			return err
		}
		p.Title = in.Title
		p.Description = in.Description
		p.Dates = in.Dates
		if err := repo.UpdatePoll(ctx, p); err != nil {
			return err
		}
		counts, err := repo.CountVotes(ctx, []int64{p.ID})
		if err != nil {
			return err
		}
		view = NewOwnerView(*p, counts[p.ID])
		return nil
	})
	return view, err
}

func (s *Service) Close(ctx context.Context, ownerID, pollID int64) (OwnerView, error) {
	var view OwnerView
	err := s.store.WithinTx(ctx, func(repo Repository) error {
		p, err := repo.GetOwned(ctx, pollID, ownerID)
		if err != nil {
			return err
		}
		if p.IsClosed {
			return ErrAlreadyClosed
		}
		at := s.now()
		if err := repo.ClosePoll(ctx, p.ID, ownerID, at); err != nil {
			return err
		}
		p.IsClosed = true
		p.ClosedAt = &at

		counts, err := repo.CountVotes(ctx, []int64{p.ID})
		if err != nil {
			return err
		}
		view = NewOwnerView(*p, counts[p.ID])
		return nil
	})
	return view, err
}

func (s *Service) Delete(ctx context.Context, ownerID, pollID int64) error {
	return s.store.WithinTx(ctx, func(repo Repository) error {
		return repo.DeletePoll(ctx, pollID, ownerID)
	})
}

// ListMine returns the owner's polls, newest first.
func (s *Service) ListMine(ctx context.Context, ownerID int64) ([]OwnerView, error) {
	views := []OwnerView{}
	err := s.store.WithinTx(ctx, func(repo Repository) error {
		polls, err := repo.ListOwned(ctx, ownerID)
		if err != nil {
			return err
		}
		if len(polls) == 0 {
			return nil
		}
		ids := make([]int64, 0, len(polls))
		for _, p := range polls {
			ids = append(ids, p.ID)
		}
		counts, err := repo.CountVotes(ctx, ids)
		if err != nil {
			return err
		}
		for _, p := range polls {
			views = append(views, NewOwnerView(p, counts[p.ID]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// GetMine returns the full tally of an owned poll, open or closed.
func (s *Service) GetMine(ctx context.Context, ownerID, pollID int64) (PublicView, error) {
	var view PublicView
	err := s.store.WithinTx(ctx, func(repo Repository) error {
		p, err := repo.GetOwned(ctx, pollID, ownerID)
		if err != nil {
			return err
		}
		votes, err := repo.ListVotes(ctx, p.ID)
		if err != nil {
			return err
		}
		view = NewPublicView(*p, votes)
		return nil
	})
	return view, err
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}
