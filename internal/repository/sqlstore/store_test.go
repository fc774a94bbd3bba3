package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"meet-vote/internal/domain/poll"
	"meet-vote/internal/domain/user"
	"meet-vote/internal/repository/sqlstore"
	"meet-vote/internal/testkit"
)

var created = time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

func newPoll(ownerID int64, token string) *poll.Poll {
	return &poll.Poll{
		OwnerID:   ownerID,
		Title:     "Team Meeting",
		Token:     token,
		CreatedAt: created,
		Dates:     []string{"2026-03-02", "2026-03-03", "2026-03-05"},
	}
}

func TestCreateAndLoadPoll(t *testing.T) {
	db := testkit.DB(t)
	store := testkit.Store(db)
	owner := testkit.CreateUser(t, db, "anna")
	ctx := context.Background()

	p := newPoll(owner, "tok-1")
	if err := store.WithinTx(ctx, func(repo poll.Repository) error {
		return repo.CreatePoll(ctx, p)
	}); err != nil {
		t.Fatalf("create poll: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected id to be assigned")
	}

	var got *poll.Poll
	if err := store.WithinTx(ctx, func(repo poll.Repository) error {
		var err error
		got, err = repo.GetByToken(ctx, "tok-1")
		return err
	}); err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got.ID != p.ID || got.Title != "Team Meeting" || got.Description != nil {
		t.Fatalf("unexpected poll %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("expected created_at %v, got %v", created, got.CreatedAt)
	}
	if len(got.Dates) != 3 || got.Dates[0] != "2026-03-02" || got.Dates[2] != "2026-03-05" {
		t.Fatalf("unexpected dates %v", got.Dates)
	}
	if got.IsClosed || got.ClosedAt != nil {
		t.Fatal("new poll must be open")
	}
}

func TestCreatePollDuplicateTokenIsConflict(t *testing.T) {
	db := testkit.DB(t)
	store := testkit.Store(db)
	owner := testkit.CreateUser(t, db, "anna")
	ctx := context.Background()

	create := func() error {
		return store.WithinTx(ctx, func(repo poll.Repository) error {
			return repo.CreatePoll(ctx, newPoll(owner, "same"))
		})
	}
	if err := create(); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := create(); !errors.Is(err, poll.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if n := testkit.Count(t, db, "SELECT COUNT(*) FROM poll_dates"); n != 3 {
		t.Fatalf("failed create must not leave dates behind, got %d rows", n)
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db := testkit.DB(t)
	store := testkit.Store(db)
	owner := testkit.CreateUser(t, db, "anna")
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(repo poll.Repository) error {
		if err := repo.CreatePoll(ctx, newPoll(owner, "rolled-back")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if n := testkit.Count(t, db, "SELECT COUNT(*) FROM polls"); n != 0 {
		t.Fatalf("expected no polls after rollback, got %d", n)
	}
	if n := testkit.Count(t, db, "SELECT COUNT(*) FROM poll_dates"); n != 0 {
		t.Fatalf("expected no dates after rollback, got %d", n)
	}
}

func TestOwnerScopedLookups(t *testing.T) {
	db := testkit.DB(t)
	store := testkit.Store(db)
	owner := testkit.CreateUser(t, db, "anna")
	other := testkit.CreateUser(t, db, "ben")
	ctx := context.Background()

	p := newPoll(owner, "tok")
	if err := store.WithinTx(ctx, func(repo poll.Repository) error {
		return repo.CreatePoll(ctx, p)
	}); err != nil {
		t.Fatalf("create poll: %v", err)
	}

	err := store.WithinTx(ctx, func(repo poll.Repository) error {
		if _, err := repo.GetOwned(ctx, p.ID, other); !errors.Is(err, poll.ErrNotFound) {
			t.Errorf("foreign GetOwned: expected ErrNotFound, got %v", err)
		}
		if err := repo.ClosePoll(ctx, p.ID, other, created); !errors.Is(err, poll.ErrNotFound) {
			t.Errorf("foreign ClosePoll: expected ErrNotFound, got %v", err)
		}
		if err := repo.DeletePoll(ctx, p.ID, other); !errors.Is(err, poll.ErrNotFound) {
			t.Errorf("foreign DeletePoll: expected ErrNotFound, got %v", err)
		}
		foreign := *p
		foreign.OwnerID = other
		if err := repo.UpdatePoll(ctx, &foreign); !errors.Is(err, poll.ErrNotFound) {
			t.Errorf("foreign UpdatePoll: expected ErrNotFound, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestClosePollOnlyOnce(t *testing.T) {
	db := testkit.DB(t)
	store := testkit.Store(db)
	owner := testkit.CreateUser(t, db, "anna")
	ctx := context.Background()

	p := newPoll(owner, "tok")
	first := created.Add(time.Hour)
	err := store.WithinTx(ctx, func(repo poll.Repository) error {
		if err := repo.CreatePoll(ctx, p); err != nil {
			return err
		}
		if err := repo.ClosePoll(ctx, p.ID, owner, first); err != nil {
			return err
		}
		if err := repo.ClosePoll(ctx, p.ID, owner, first.Add(time.Hour)); !errors.Is(err, poll.ErrAlreadyClosed) {
			t.Errorf("expected ErrAlreadyClosed, got %v", err)
		}
		got, err := repo.GetOwned(ctx, p.ID, owner)
		if err != nil {
			return err
		}
		if !got.IsClosed || got.ClosedAt == nil || !got.ClosedAt.Equal(first) {
			t.Errorf("expected closed at %v, got %+v", first, got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}

func TestUpsertVoteKeepsOneRowPerName(t *testing.T) {
	db := testkit.DB(t)
	store := testkit.Store(db)
	owner := testkit.CreateUser(t, db, "anna")
	ctx := context.Background()

	p := newPoll(owner, "tok")
	later := created.Add(time.Minute)
	err := store.WithinTx(ctx, func(repo poll.Repository) error {
		if err := repo.CreatePoll(ctx, p); err != nil {
			return err
		}
		first := &poll.Vote{PollID: p.ID, VoterName: "Anna", CreatedAt: created, UpdatedAt: created}
		if err := repo.UpsertVote(ctx, first); err != nil {
			return err
		}
		second := &poll.Vote{PollID: p.ID, VoterName: "Anna", CreatedAt: later, UpdatedAt: later}
		if err := repo.UpsertVote(ctx, second); err != nil {
			return err
		}
		if second.ID != first.ID {
			t.Errorf("expected same vote id, got %d and %d", first.ID, second.ID)
		}
		if !second.CreatedAt.Equal(created) {
			t.Errorf("created_at must survive the upsert, got %v", second.CreatedAt)
		}
		found, err := repo.FindVote(ctx, p.ID, "Anna")
		if err != nil {
			return err
		}
		if !found.UpdatedAt.Equal(later) {
			t.Errorf("expected updated_at %v, got %v", later, found.UpdatedAt)
		}
		if _, err := repo.FindVote(ctx, p.ID, "anna"); !errors.Is(err, poll.ErrNotFound) {
			t.Errorf("names are case sensitive, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	if n := testkit.Count(t, db, "SELECT COUNT(*) FROM votes"); n != 1 {
		t.Fatalf("expected 1 vote row, got %d", n)
	}
}

func TestReplaceSelectionsAndListVotes(t *testing.T) {
	db := testkit.DB(t)
	store := testkit.Store(db)
	owner := testkit.CreateUser(t, db, "anna")
	ctx := context.Background()

	p := newPoll(owner, "tok")
	var votes []poll.Vote
	err := store.WithinTx(ctx, func(repo poll.Repository) error {
		if err := repo.CreatePoll(ctx, p); err != nil {
			return err
		}
		for _, name := range []string{"Anna", "Ben"} {
			v := &poll.Vote{PollID: p.ID, VoterName: name, CreatedAt: created, UpdatedAt: created}
			if err := repo.UpsertVote(ctx, v); err != nil {
				return err
			}
			if err := repo.ReplaceSelections(ctx, v.ID, []poll.Selection{
				{Date: "2026-03-05", Value: poll.ValueNo},
				{Date: "2026-03-02", Value: poll.ValueYes},
			}); err != nil {
				return err
			}
			if err := repo.ReplaceSelections(ctx, v.ID, []poll.Selection{
				{Date: "2026-03-03", Value: poll.ValueMaybe},
			}); err != nil {
				return err
			}
		}
		var err error
		votes, err = repo.ListVotes(ctx, p.ID)
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	if len(votes) != 2 || votes[0].VoterName != "Anna" || votes[1].VoterName != "Ben" {
		t.Fatalf("unexpected votes %+v", votes)
	}
	for _, v := range votes {
		if len(v.Selections) != 1 || v.Selections[0].Date != "2026-03-03" || v.Selections[0].Value != poll.ValueMaybe {
			t.Fatalf("expected only the replacement selection, got %+v", v.Selections)
		}
	}
}

func TestListOwnedNewestFirstWithCounts(t *testing.T) {
	db := testkit.DB(t)
	store := testkit.Store(db)
	owner := testkit.CreateUser(t, db, "anna")
	ctx := context.Background()

	older := newPoll(owner, "older")
	newer := newPoll(owner, "newer")
	newer.CreatedAt = created.Add(time.Hour)
	tie := newPoll(owner, "tie")
	tie.CreatedAt = created.Add(time.Hour)

	var (
		list   []poll.Poll
		counts map[int64]int
	)
	err := store.WithinTx(ctx, func(repo poll.Repository) error {
		for _, p := range []*poll.Poll{older, newer, tie} {
			if err := repo.CreatePoll(ctx, p); err != nil {
				return err
			}
		}
		v := &poll.Vote{PollID: older.ID, VoterName: "Ben", CreatedAt: created, UpdatedAt: created}
		if err := repo.UpsertVote(ctx, v); err != nil {
			return err
		}
		var err error
		if list, err = repo.ListOwned(ctx, owner); err != nil {
			return err
		}
		counts, err = repo.CountVotes(ctx, []int64{older.ID, newer.ID, tie.ID})
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	want := []string{"tie", "newer", "older"}
	if len(list) != len(want) {
		t.Fatalf("expected %d polls, got %d", len(want), len(list))
	}
	for i, tok := range want {
		if list[i].Token != tok {
			t.Fatalf("position %d: expected %s, got %s", i, tok, list[i].Token)
		}
		if len(list[i].Dates) != 3 {
			t.Fatalf("expected dates loaded for %s", tok)
		}
	}
	if counts[older.ID] != 1 || counts[newer.ID] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestDeletePollRemovesChildren(t *testing.T) {
	db := testkit.DB(t)
	store := testkit.Store(db)
	owner := testkit.CreateUser(t, db, "anna")
	ctx := context.Background()

	p := newPoll(owner, "tok")
	kept := newPoll(owner, "kept")
	err := store.WithinTx(ctx, func(repo poll.Repository) error {
		for _, target := range []*poll.Poll{p, kept} {
			if err := repo.CreatePoll(ctx, target); err != nil {
				return err
			}
			v := &poll.Vote{PollID: target.ID, VoterName: "Anna", CreatedAt: created, UpdatedAt: created}
			if err := repo.UpsertVote(ctx, v); err != nil {
				return err
			}
			if err := repo.ReplaceSelections(ctx, v.ID, []poll.Selection{{Date: "2026-03-02", Value: poll.ValueYes}}); err != nil {
				return err
			}
		}
		return repo.DeletePoll(ctx, p.ID, owner)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	checks := map[string]int{
		"SELECT COUNT(*) FROM polls":           1,
		"SELECT COUNT(*) FROM poll_dates":      3,
		"SELECT COUNT(*) FROM votes":           1,
		"SELECT COUNT(*) FROM vote_selections": 1,
	}
	for query, want := range checks {
		if n := testkit.Count(t, db, query); n != want {
			t.Fatalf("%s: expected %d, got %d", query, want, n)
		}
	}
}

func TestUserRepo(t *testing.T) {
	db := testkit.DB(t)
	repo := sqlstore.NewUserRepo(db, testkit.Logger())
	ctx := context.Background()

	u := &user.User{Username: "anna", Credential: user.LegacyPlaintextCredential("pw")}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, &user.User{Username: "anna", Credential: user.LegacyPlaintextCredential("x")}); !errors.Is(err, user.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	if err := repo.UpdateCredential(ctx, u.ID, user.HashedCredential("$2a$04$abcdefghijklmnopqrstuv")); err != nil {
		t.Fatalf("update credential: %v", err)
	}
	got, err := repo.GetByUsername(ctx, "anna")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := got.Credential.(user.HashedCredential); !ok {
		t.Fatalf("expected hashed credential, got %T", got.Credential)
	}
	if _, err := repo.GetByID(ctx, 9999); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testkit.DB(t)
	applied, err := sqlstore.Migrate(context.Background(), db)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected nothing to apply, got %v", applied)
	}
	if n := testkit.Count(t, db, "SELECT COUNT(*) FROM schema_migrations"); n != 1 {
		t.Fatalf("expected 1 recorded migration, got %d", n)
	}
}
