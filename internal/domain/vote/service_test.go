package vote_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"meet-vote/internal/domain/poll"
	"meet-vote/internal/domain/vote"
	"meet-vote/internal/platform/clock"
	"meet-vote/internal/platform/token"
	"meet-vote/internal/testkit"
)

const pollToken = "public-token"

type fixture struct {
	votes  *vote.Service
	polls  *poll.Service
	clock  *clock.Manual
	owner  int64
	pollID int64
	count  func(query string, args ...any) int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testkit.DB(t)
	store := testkit.Store(db)
	c := clock.NewManual(time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC))
	owner := testkit.CreateUser(t, db, "owner")

	polls := poll.NewService(store, token.Fixed(pollToken), poll.WithClock(c), poll.WithLogger(testkit.Logger()))
	created, err := polls.Create(context.Background(), owner, poll.Input{
		Title: "Team Meeting",
		Dates: []string{"2026-03-02", "2026-03-03", "2026-03-05", "2026-03-06", "2026-03-09"},
	})
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}

	return &fixture{
		votes:  vote.NewService(store, c),
		polls:  polls,
		clock:  c,
		owner:  owner,
		pollID: created.ID,
		count:  func(query string, args ...any) int { return testkit.Count(t, db, query, args...) },
	}
}

func TestSubmitNormalizesValue(t *testing.T) {
	f := newFixture(t)

	view, err := f.votes.Submit(context.Background(), pollToken, " Anna ", []vote.SelectionInput{
		{Date: "2026-03-02", Value: "YES"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(view.Votes) != 1 {
		t.Fatalf("expected 1 vote, got %d", len(view.Votes))
	}
	got := view.Votes[0]
	if got.Name != "Anna" || len(got.Selections) != 1 {
		t.Fatalf("unexpected vote %+v", got)
	}
	if got.Selections[0].Date != "2026-03-02" || got.Selections[0].Value != poll.ValueYes {
		t.Fatalf("unexpected selection %+v", got.Selections[0])
	}
}

func TestResubmitReplacesSelections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.votes.Submit(ctx, pollToken, "Anna", []vote.SelectionInput{
		{Date: "2026-03-02", Value: "yes"},
		{Date: "2026-03-03", Value: "no"},
	}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	f.clock.Advance(time.Minute)
	view, err := f.votes.Submit(ctx, pollToken, "Anna", []vote.SelectionInput{
		{Date: "2026-03-05", Value: "maybe"},
	})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if len(view.Votes) != 1 {
		t.Fatalf("expected a single vote for Anna, got %d", len(view.Votes))
	}
	sel := view.Votes[0].Selections
	if len(sel) != 1 || sel[0].Date != "2026-03-05" || sel[0].Value != poll.ValueMaybe {
		t.Fatalf("expected only the new selection, got %+v", sel)
	}
	if n := f.count("SELECT COUNT(*) FROM votes"); n != 1 {
		t.Fatalf("expected 1 vote row, got %d", n)
	}
	if n := f.count("SELECT COUNT(*) FROM votes WHERE updated_at > created_at"); n != 1 {
		t.Fatalf("expected updated_at to move on resubmit")
	}
}

func TestNamesAreCaseSensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"Ben", "ben"} {
		if _, err := f.votes.Submit(ctx, pollToken, name, []vote.SelectionInput{{Date: "2026-03-02", Value: "no"}}); err != nil {
			t.Fatalf("submit %s: %v", name, err)
		}
	}
	view, err := f.votes.GetPublic(ctx, pollToken)
	if err != nil {
		t.Fatalf("get public: %v", err)
	}
	if len(view.Votes) != 2 || view.Votes[0].Name != "Ben" || view.Votes[1].Name != "ben" {
		t.Fatalf("expected two distinct voters in submission order, got %+v", view.Votes)
	}
}

func TestSubmitValidationIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.votes.Submit(ctx, pollToken, "Anna", []vote.SelectionInput{{Date: "2026-03-02", Value: "yes"}}); err != nil {
		t.Fatalf("seed vote: %v", err)
	}

	cases := []struct {
		name    string
		voter   string
		sel     []vote.SelectionInput
		wantMsg string
	}{
		{"blank name", "   ", []vote.SelectionInput{{Date: "2026-03-02", Value: "yes"}}, "name is required"},
		{"no selections", "Anna", nil, "selections must be a non-empty array"},
		{"fifth selection has unknown date", "Anna", []vote.SelectionInput{
			{Date: "2026-03-02", Value: "no"},
			{Date: "2026-03-03", Value: "no"},
			{Date: "2026-03-05", Value: "no"},
			{Date: "2026-03-06", Value: "no"},
			{Date: " 2026-12-24 ", Value: "no"},
		}, "invalid date '2026-12-24'"},
		{"bad value", "Anna", []vote.SelectionInput{{Date: "2026-03-02", Value: " Perhaps "}}, "invalid vote value 'perhaps'"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.votes.Submit(ctx, pollToken, c.voter, c.sel)
			var vErr *poll.ValidationError
			if !errors.As(err, &vErr) || vErr.Message != c.wantMsg {
				t.Fatalf("expected %q, got %v", c.wantMsg, err)
			}
		})
	}

	view, err := f.votes.GetPublic(ctx, pollToken)
	if err != nil {
		t.Fatalf("get public: %v", err)
	}
	sel := view.Votes[0].Selections
	if len(sel) != 1 || sel[0].Value != poll.ValueYes {
		t.Fatalf("rejected submissions must leave state untouched, got %+v", sel)
	}
}

func TestDuplicateDateLastValueWins(t *testing.T) {
	f := newFixture(t)

	view, err := f.votes.Submit(context.Background(), pollToken, "Anna", []vote.SelectionInput{
		{Date: "2026-03-03", Value: "yes"},
		{Date: "2026-03-02", Value: "no"},
		{Date: "2026-03-03", Value: "maybe"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	sel := view.Votes[0].Selections
	if len(sel) != 2 {
		t.Fatalf("expected one selection per date, got %+v", sel)
	}
	if sel[0].Date != "2026-03-03" || sel[0].Value != poll.ValueMaybe || sel[1].Date != "2026-03-02" {
		t.Fatalf("unexpected selections %+v", sel)
	}
}

func TestClosedPollLooksMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.polls.Close(ctx, f.owner, f.pollID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := f.votes.Submit(ctx, pollToken, "Anna", []vote.SelectionInput{{Date: "2026-03-02", Value: "yes"}}); !errors.Is(err, poll.ErrNotFound) {
		t.Fatalf("vote on closed poll: expected ErrNotFound, got %v", err)
	}
	if _, err := f.votes.GetPublic(ctx, pollToken); !errors.Is(err, poll.ErrNotFound) {
		t.Fatalf("public view of closed poll: expected ErrNotFound, got %v", err)
	}
	if _, err := f.votes.GetPublic(ctx, "no-such-token"); !errors.Is(err, poll.ErrNotFound) {
		t.Fatalf("unknown token: expected ErrNotFound, got %v", err)
	}
}

func TestValidationChecksCurrentDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.polls.Update(ctx, f.owner, f.pollID, poll.Input{
		Title: "Team Meeting",
		Dates: []string{"2026-04-01", "2026-04-02", "2026-04-03"},
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	_, err := f.votes.Submit(ctx, pollToken, "Anna", []vote.SelectionInput{{Date: "2026-03-02", Value: "yes"}})
	if err == nil || err.Error() != "invalid date '2026-03-02'" {
		t.Fatalf("expected removed date to be rejected, got %v", err)
	}
}

func TestConcurrentSameNameSubmissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value := []string{"yes", "no", "maybe"}[i%3]
			_, err := f.votes.Submit(ctx, pollToken, "Anna", []vote.SelectionInput{{Date: "2026-03-02", Value: value}})
			if err != nil {
				errs <- fmt.Errorf("submission %d: %w", i, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	if n := f.count("SELECT COUNT(*) FROM votes"); n != 1 {
		t.Fatalf("expected exactly one vote row, got %d", n)
	}
	if n := f.count("SELECT COUNT(*) FROM vote_selections"); n != 1 {
		t.Fatalf("expected exactly one selection row, got %d", n)
	}
}

func TestPublicViewShape(t *testing.T) {
	f := newFixture(t)

	view, err := f.votes.GetPublic(context.Background(), pollToken)
	if err != nil {
		t.Fatalf("get public: %v", err)
	}
	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"id", "token", "title", "description", "dates", "votes", "isClosed", "closedAt", "createdAt"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing key %q in %s", key, raw)
		}
	}
	if votes, ok := decoded["votes"].([]any); !ok || len(votes) != 0 {
		t.Fatalf("votes must be an empty array, got %v", decoded["votes"])
	}
	if decoded["closedAt"] != nil || decoded["description"] != nil {
		t.Fatalf("expected null closedAt and description, got %s", raw)
	}
}
