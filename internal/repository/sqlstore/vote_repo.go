package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"meet-vote/internal/domain/poll"
)

type voteRow struct {
	ID        int64  `db:"id"`
	PollID    int64  `db:"poll_id"`
	VoterName string `db:"voter_name"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (row voteRow) toDomain() poll.Vote {
	return poll.Vote{
		ID:         row.ID,
		PollID:     row.PollID,
		VoterName:  row.VoterName,
		CreatedAt:  fromMillis(row.CreatedAt),
		UpdatedAt:  fromMillis(row.UpdatedAt),
		Selections: []poll.Selection{},
	}
}

type selectionRow struct {
	VoteID int64  `db:"vote_id"`
	Date   string `db:"date"`
	Value  string `db:"value"`
}

func (r *txRepo) FindVote(ctx context.Context, pollID int64, voterName string) (*poll.Vote, error) {
	var row voteRow
	err := r.tx.GetContext(ctx, &row, r.tx.Rebind(`
        SELECT id, poll_id, voter_name, created_at, updated_at
        FROM votes WHERE poll_id = ? AND voter_name = ?
    `), pollID, voterName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, poll.ErrNotFound
	}
	if err != nil {
		return nil, r.logError("find_vote", err, "poll_id", pollID)
	}
	v := row.toDomain()
	return &v, nil
}

// UpsertVote relies on the (poll_id, voter_name) unique key: concurrent
// submissions under one name collapse into a single row.
func (r *txRepo) UpsertVote(ctx context.Context, v *poll.Vote) error {
	var (
		id        int64
		createdAt int64
	)
	err := r.tx.QueryRowxContext(ctx, r.tx.Rebind(`
        INSERT INTO votes (poll_id, voter_name, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (poll_id, voter_name) DO UPDATE SET updated_at = excluded.updated_at
        RETURNING id, created_at
    `), v.PollID, v.VoterName, toMillis(v.CreatedAt), toMillis(v.UpdatedAt)).Scan(&id, &createdAt)
	if isUniqueViolation(err) {
		return poll.ErrConflict
	}
	if err != nil {
		return r.logError("upsert_vote", err, "poll_id", v.PollID)
	}
	v.ID = id
	v.CreatedAt = fromMillis(createdAt)
	return nil
}

func (r *txRepo) ReplaceSelections(ctx context.Context, voteID int64, selections []poll.Selection) error {
	if _, err := r.tx.ExecContext(ctx, r.tx.Rebind(`DELETE FROM vote_selections WHERE vote_id = ?`), voteID); err != nil {
		return r.logError("delete_vote_selections", err, "vote_id", voteID)
	}
	if len(selections) == 0 {
		return nil
	}

	rows := make([]selectionRow, 0, len(selections))
	for _, s := range selections {
		rows = append(rows, selectionRow{VoteID: voteID, Date: s.Date, Value: string(s.Value)})
	}
	if _, err := r.tx.NamedExecContext(ctx,
		`INSERT INTO vote_selections (vote_id, date, value) VALUES (:vote_id, :date, :value)`, rows); err != nil {
		return r.logError("insert_vote_selections", err, "vote_id", voteID)
	}
	return nil
}

// ListVotes returns the poll's votes in submission order with their
// selections in stored order.
func (r *txRepo) ListVotes(ctx context.Context, pollID int64) ([]poll.Vote, error) {
	var rows []voteRow
	if err := r.tx.SelectContext(ctx, &rows, r.tx.Rebind(`
        SELECT id, poll_id, voter_name, created_at, updated_at
        FROM votes WHERE poll_id = ?
        ORDER BY id
    `), pollID); err != nil {
		return nil, r.logError("list_votes", err, "poll_id", pollID)
	}
	if len(rows) == 0 {
		return []poll.Vote{}, nil
	}

	var selections []selectionRow
	if err := r.tx.SelectContext(ctx, &selections, r.tx.Rebind(`
        SELECT s.vote_id, s.date, s.value
        FROM vote_selections s
        JOIN votes v ON v.id = s.vote_id
        WHERE v.poll_id = ?
        ORDER BY s.id
    `), pollID); err != nil {
		return nil, r.logError("list_vote_selections", err, "poll_id", pollID)
	}

	votes := make([]poll.Vote, 0, len(rows))
	index := make(map[int64]int, len(rows))
	for _, row := range rows {
		index[row.ID] = len(votes)
		votes = append(votes, row.toDomain())
	}
	for _, s := range selections {
		i, ok := index[s.VoteID]
		if !ok {
			continue
		}
		votes[i].Selections = append(votes[i].Selections, poll.Selection{Date: s.Date, Value: poll.Value(s.Value)})
	}
	return votes, nil
}

func (r *txRepo) CountVotes(ctx context.Context, pollIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(pollIDs))
	if len(pollIDs) == 0 {
		return counts, nil
	}

	query, args, err := sqlx.In(`SELECT poll_id, COUNT(*) AS n FROM votes WHERE poll_id IN (?) GROUP BY poll_id`, pollIDs)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		PollID int64 `db:"poll_id"`
		N      int   `db:"n"`
	}
	if err := r.tx.SelectContext(ctx, &rows, r.tx.Rebind(query), args...); err != nil {
		return nil, r.logError("count_votes", err)
	}
	for _, row := range rows {
		counts[row.PollID] = row.N
	}
	return counts, nil
}

var _ poll.Repository = (*txRepo)(nil)
var _ poll.Store = (*Store)(nil)
