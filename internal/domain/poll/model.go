package poll

import (
	"context"
	"time"
)

// Poll is the aggregate root. Dates is the normalized candidate set and
// is always loaded together with the poll row.
type Poll struct {
	ID          int64
	OwnerID     int64
	Title       string
	Description *string
	Token       string
	IsClosed    bool
	ClosedAt    *time.Time
	CreatedAt   time.Time
	Dates       []string
}

type Value string

const (
	ValueYes   Value = "yes"
	ValueNo    Value = "no"
	ValueMaybe Value = "maybe"
)

func (v Value) Valid() bool {
	switch v {
	case ValueYes, ValueNo, ValueMaybe:
		return true
	}
	return false
}

type Selection struct {
	Date  string
	Value Value
}

// Vote is one respondent's submission. (PollID, VoterName) is unique.
type Vote struct {
	ID         int64
	PollID     int64
	VoterName  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Selections []Selection
}

// Store hands out a Repository bound to one transaction. fn's changes commit
// only if it returns nil; any error or panic rolls everything back.
type Store interface {
	WithinTx(ctx context.Context, fn func(Repository) error) error
}

// Repository is the transactional view of polls, their dates and votes.
// Lookups scoped by owner return ErrNotFound both for missing and for
// foreign polls.
type Repository interface {
	CreatePoll(ctx context.Context, p *Poll) error
	GetOwned(ctx context.Context, id, ownerID int64) (*Poll, error)
	// GetByToken also locks the poll row against concurrent writers where
	// the backend supports row locks.
	GetByToken(ctx context.Context, token string) (*Poll, error)
	ListOwned(ctx context.Context, ownerID int64) ([]Poll, error)
	// UpdatePoll rewrites title and description and replaces the date set.
	UpdatePoll(ctx context.Context, p *Poll) error
	ClosePoll(ctx context.Context, id, ownerID int64, at time.Time) error
	DeletePoll(ctx context.Context, id, ownerID int64) error

	FindVote(ctx context.Context, pollID int64, voterName string) (*Vote, error)
	// UpsertVote inserts the vote or, when (poll, voter name) exists, bumps
	// its updated_at. It fills in ID and CreatedAt.
	UpsertVote(ctx context.Context, v *Vote) error
	ReplaceSelections(ctx context.Context, voteID int64, selections []Selection) error
	ListVotes(ctx context.Context, pollID int64) ([]Vote, error)
	CountVotes(ctx context.Context, pollIDs []int64) (map[int64]int, error)
}
