// Package seed loads the demo account and sample poll used for local runs.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"meet-vote/internal/domain/poll"
	"meet-vote/internal/domain/user"
	"meet-vote/internal/domain/vote"
	"meet-vote/internal/platform/clock"
	"meet-vote/internal/platform/token"
)

const (
	DemoUsername = "demo"
	DemoPassword = "demo123"
	DemoToken    = "sample-poll-token"
)

var demoDates = []string{"2026-03-02", "2026-03-03", "2026-03-05", "2026-03-06"}

var demoVotes = []struct {
	name       string
	selections []vote.SelectionInput
}{
	{"Anna", []vote.SelectionInput{
		{Date: "2026-03-02", Value: "yes"},
		{Date: "2026-03-03", Value: "maybe"},
		{Date: "2026-03-05", Value: "no"},
		{Date: "2026-03-06", Value: "yes"},
	}},
	{"Ben", []vote.SelectionInput{
		{Date: "2026-03-02", Value: "maybe"},
		{Date: "2026-03-03", Value: "yes"},
		{Date: "2026-03-05", Value: "yes"},
		{Date: "2026-03-06", Value: "no"},
	}},
}

// Demo creates the demo organizer, its sample poll and two votes. It reports
// false without touching anything when the demo account already exists.
func Demo(ctx context.Context, users *user.Service, store poll.Store, c clock.Clock, logger *slog.Logger) (bool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	owner, err := users.Register(ctx, DemoUsername, DemoPassword)
	if errors.Is(err, user.ErrUsernameTaken) {
		logger.Info("demo data already present", "username", DemoUsername)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("seed demo user: %w", err)
	}

	description := "Bitte tragt ein, wann ihr Zeit habt."
	polls := poll.NewService(store, token.Fixed(DemoToken), poll.WithClock(c), poll.WithLogger(logger))
	created, err := polls.Create(ctx, owner.ID, poll.Input{
		Title:       "Team Meeting Februar",
		Description: &description,
		Dates:       demoDates,
	})
	if err != nil {
		return false, fmt.Errorf("seed demo poll: %w", err)
	}

	votes := vote.NewService(store, c)
	for _, v := range demoVotes {
		if _, err := votes.Submit(ctx, created.Token, v.name, v.selections); err != nil {
			return false, fmt.Errorf("seed vote for %s: %w", v.name, err)
		}
	}

	logger.Info("demo data seeded", "poll_id", created.ID, "token", created.Token)
	return true, nil
}
