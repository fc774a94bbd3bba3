package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"meet-vote/internal/domain/poll"
	"meet-vote/internal/platform/database"
)

// txRepo is poll.Repository bound to one open transaction.
type txRepo struct {
	tx      *sqlx.Tx
	dialect string
	logger  *slog.Logger
}

type pollRow struct {
	ID          int64          `db:"id"`
	OwnerID     int64          `db:"owner_id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Token       string         `db:"public_token"`
	IsClosed    bool           `db:"is_closed"`
	ClosedAt    sql.NullInt64  `db:"closed_at"`
	CreatedAt   int64          `db:"created_at"`
}

func (row pollRow) toDomain() poll.Poll {
	p := poll.Poll{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Title:     row.Title,
		Token:     row.Token,
		IsClosed:  row.IsClosed,
		CreatedAt: fromMillis(row.CreatedAt),
	}
	if row.Description.Valid {
		d := row.Description.String
		p.Description = &d
	}
	if row.ClosedAt.Valid {
		t := fromMillis(row.ClosedAt.Int64)
		p.ClosedAt = &t
	}
	return p
}

type dateRow struct {
	PollID int64  `db:"poll_id"`
	Date   string `db:"date"`
}

const pollColumns = `id, owner_id, title, description, public_token, is_closed, closed_at, created_at`

func (r *txRepo) CreatePoll(ctx context.Context, p *poll.Poll) error {
	var description any
	if p.Description != nil {
		description = *p.Description
	}

	query := r.tx.Rebind(`
        INSERT INTO polls (owner_id, title, description, public_token, is_closed, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        RETURNING id
    `)
	err := r.tx.QueryRowxContext(ctx, query,
		p.OwnerID, p.Title, description, p.Token, false, toMillis(p.CreatedAt),
	).Scan(&p.ID)
	if isUniqueViolation(err) {
		return poll.ErrConflict
	}
	if err != nil {
		return r.logError("create_poll", err, "owner_id", p.OwnerID)
	}

	return r.insertDates(ctx, p.ID, p.Dates)
}

func (r *txRepo) GetOwned(ctx context.Context, id, ownerID int64) (*poll.Poll, error) {
	var row pollRow
	err := r.tx.GetContext(ctx, &row,
		r.tx.Rebind(`SELECT `+pollColumns+` FROM polls WHERE id = ? AND owner_id = ?`), id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, poll.ErrNotFound
	}
	if err != nil {
		return nil, r.logError("get_owned_poll", err, "poll_id", id)
	}
	return r.withDates(ctx, row)
}

func (r *txRepo) GetByToken(ctx context.Context, token string) (*poll.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE public_token = ?`
	if r.dialect == database.DriverPostgres {
		query += ` FOR SHARE`
	}

	var row pollRow
	err := r.tx.GetContext(ctx, &row, r.tx.Rebind(query), token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, poll.ErrNotFound
	}
	if err != nil {
		return nil, r.logError("get_poll_by_token", err)
	}
	return r.withDates(ctx, row)
}

func (r *txRepo) ListOwned(ctx context.Context, ownerID int64) ([]poll.Poll, error) {
	var rows []pollRow
	err := r.tx.SelectContext(ctx, &rows, r.tx.Rebind(`
        SELECT `+pollColumns+`
        FROM polls
        WHERE owner_id = ?
        ORDER BY created_at DESC, id DESC
    `), ownerID)
	if err != nil {
		return nil, r.logError("list_owned_polls", err, "owner_id", ownerID)
	}
	if len(rows) == 0 {
		return []poll.Poll{}, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	dates, err := r.loadDates(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := make([]poll.Poll, 0, len(rows))
	for _, row := range rows {
		p := row.toDomain()
		p.Dates = dates[p.ID]
		res = append(res, p)
	}
	return res, nil
}

func (r *txRepo) UpdatePoll(ctx context.Context, p *poll.Poll) error {
	var description any
	if p.Description != nil {
		description = *p.Description
	}

	res, err := r.tx.ExecContext(ctx,
		r.tx.Rebind(`UPDATE polls SET title = ?, description = ? WHERE id = ? AND owner_id = ?`),
		p.Title, description, p.ID, p.OwnerID)
	if err != nil {
		return r.logError("update_poll", err, "poll_id", p.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return poll.ErrNotFound
	}

	if _, err := r.tx.ExecContext(ctx, r.tx.Rebind(`DELETE FROM poll_dates WHERE poll_id = ?`), p.ID); err != nil {
		return r.logError("delete_poll_dates", err, "poll_id", p.ID)
	}
	return r.insertDates(ctx, p.ID, p.Dates)
}

// ClosePoll only flips an open poll, so a racing second close cannot move
// closed_at.
func (r *txRepo) ClosePoll(ctx context.Context, id, ownerID int64, at time.Time) error {
	res, err := r.tx.ExecContext(ctx, r.tx.Rebind(`
        UPDATE polls SET is_closed = ?, closed_at = ?
        WHERE id = ? AND owner_id = ? AND is_closed = ?
    `), true, toMillis(at), id, ownerID, false)
	if err != nil {
		return r.logError("close_poll", err, "poll_id", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return r.logError("close_poll_rows", err, "poll_id", id)
	}
	if n > 0 {
		return nil
	}

	var closed bool
	err = r.tx.GetContext(ctx, &closed,
		r.tx.Rebind(`SELECT is_closed FROM polls WHERE id = ? AND owner_id = ?`), id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return poll.ErrNotFound
	}
	if err != nil {
		return r.logError("close_poll_check", err, "poll_id", id)
	}
	return poll.ErrAlreadyClosed
}

// DeletePoll removes the poll and everything under it. Children are deleted
// explicitly so the result does not depend on foreign key enforcement.
func (r *txRepo) DeletePoll(ctx context.Context, id, ownerID int64) error {
	var found int64
	err := r.tx.GetContext(ctx, &found,
		r.tx.Rebind(`SELECT id FROM polls WHERE id = ? AND owner_id = ?`), id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return poll.ErrNotFound
	}
	if err != nil {
		return r.logError("delete_poll_lookup", err, "poll_id", id)
	}

	statements := []struct {
		event string
		query string
	}{
		{"delete_vote_selections", `DELETE FROM vote_selections WHERE vote_id IN (SELECT id FROM votes WHERE poll_id = ?)`},
		{"delete_votes", `DELETE FROM votes WHERE poll_id = ?`},
		{"delete_poll_dates", `DELETE FROM poll_dates WHERE poll_id = ?`},
		{"delete_poll", `DELETE FROM polls WHERE id = ?`},
	}
	for _, stmt := range statements {
		if _, err := r.tx.ExecContext(ctx, r.tx.Rebind(stmt.query), id); err != nil {
			return r.logError(stmt.event, err, "poll_id", id)
		}
	}
	return nil
}

func (r *txRepo) insertDates(ctx context.Context, pollID int64, dates []string) error {
	if len(dates) == 0 {
		return nil
	}
	rows := make([]dateRow, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, dateRow{PollID: pollID, Date: d})
	}
	if _, err := r.tx.NamedExecContext(ctx,
		`INSERT INTO poll_dates (poll_id, date) VALUES (:poll_id, :date)`, rows); err != nil {
		return r.logError("insert_poll_dates", err, "poll_id", pollID)
	}
	return nil
}

func (r *txRepo) withDates(ctx context.Context, row pollRow) (*poll.Poll, error) {
	dates, err := r.loadDates(ctx, []int64{row.ID})
	if err != nil {
		return nil, err
	}
	p := row.toDomain()
	p.Dates = dates[p.ID]
	return &p, nil
}

func (r *txRepo) loadDates(ctx context.Context, pollIDs []int64) (map[int64][]string, error) {
	query, args, err := sqlx.In(`SELECT poll_id, date FROM poll_dates WHERE poll_id IN (?) ORDER BY poll_id, date`, pollIDs)
	if err != nil {
		return nil, err
	}

	var rows []dateRow
	if err := r.tx.SelectContext(ctx, &rows, r.tx.Rebind(query), args...); err != nil {
		return nil, r.logError("load_poll_dates", err)
	}

	res := make(map[int64][]string, len(pollIDs))
	for _, id := range pollIDs {
		res[id] = []string{}
	}
	for _, row := range rows {
		res[row.PollID] = append(res[row.PollID], row.Date)
	}
	return res, nil
}

func (r *txRepo) logError(event string, err error, attrs ...any) error {
	return logError(r.logger, event, err, attrs...)
}
