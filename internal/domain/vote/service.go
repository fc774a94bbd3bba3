package vote

import (
	"context"
	"errors"
	"strings"
	"time"

	"meet-vote/internal/domain/poll"
	"meet-vote/internal/platform/clock"
)

type Service struct {
	store poll.Store
	clock clock.Clock
}

func NewService(store poll.Store, c clock.Clock) *Service {
	if c == nil {
		c = clock.System()
	}
	return &Service{store: store, clock: c}
}

// Submit records voterName's availability on the open poll behind token.
// A second submission under the same name replaces the first one's
// selections. Everything is validated before the first write.
func (s *Service) Submit(ctx context.Context, token, voterName string, selections []SelectionInput) (poll.PublicView, error) {
	var view poll.PublicView
	err := s.store.WithinTx(ctx, func(repo poll.Repository) error {
		p, err := openPoll(ctx, repo, token)
		if err != nil {
			return err
		}

		name := strings.TrimSpace(voterName)
		if name == "" {
			return poll.Invalidf("name is required")
		}
		if len(selections) == 0 {
			return poll.Invalidf("selections must be a non-empty array")
		}
		normalized, err := normalizeSelections(p.Dates, selections)
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC().Truncate(time.Millisecond)
		v := &poll.Vote{PollID: p.ID, VoterName: name, CreatedAt: now, UpdatedAt: now}
		if existing, err := repo.FindVote(ctx, p.ID, name); err == nil {
			v.ID = existing.ID
			v.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, poll.ErrNotFound) {
			return err
		}

		if err := repo.UpsertVote(ctx, v); err != nil {
			return err
		}
		if err := repo.ReplaceSelections(ctx, v.ID, normalized); err != nil {
			return err
		}

		votes, err := repo.ListVotes(ctx, p.ID)
		if err != nil {
			return err
		}
		view = poll.NewPublicView(*p, votes)
		return nil
	})
	return view, err
}

// GetPublic returns the tally of an open poll. Closed and unknown tokens
// are both ErrNotFound.
func (s *Service) GetPublic(ctx context.Context, token string) (poll.PublicView, error) {
	var view poll.PublicView
	err := s.store.WithinTx(ctx, func(repo poll.Repository) error {
		p, err := openPoll(ctx, repo, token)
		if err != nil {
			return err
		}
		votes, err := repo.ListVotes(ctx, p.ID)
		if err != nil {
			return err
		}
		view = poll.NewPublicView(*p, votes)
		return nil
	})
	return view, err
}

func openPoll(ctx context.Context, repo poll.Repository, token string) (*poll.Poll, error) {
	p, err := repo.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if p.IsClosed {
		return nil, poll.ErrNotFound
	}
	return p, nil
}

// normalizeSelections validates in order and keeps one entry per date: the
// first occurrence fixes the position, the last one fixes the value.
func normalizeSelections(dates []string, in []SelectionInput) ([]poll.Selection, error) {
	allowed := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		allowed[d] = struct{}{}
	}

	out := make([]poll.Selection, 0, len(in))
	index := make(map[string]int, len(in))
	for _, sel := range in {
		date := strings.TrimSpace(sel.Date)
		if _, ok := allowed[date]; !ok {
			return nil, poll.Invalidf("invalid date '%s'", date)
		}
		value := poll.Value(strings.ToLower(strings.TrimSpace(sel.Value)))
		if !value.Valid() {
			return nil, poll.Invalidf("invalid vote value '%s'", value)
		}
		if i, ok := index[date]; ok {
			out[i].Value = value
			continue
		}
		index[date] = len(out)
		out = append(out, poll.Selection{Date: date, Value: value})
	}
	return out, nil
}
