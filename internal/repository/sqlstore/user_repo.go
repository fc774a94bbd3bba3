package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"meet-vote/internal/domain/user"
)

type UserRepo struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewUserRepo(db *sqlx.DB, logger *slog.Logger) *UserRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserRepo{db: db, logger: logger}
}

type userRow struct {
	ID        int64  `db:"id"`
	Username  string `db:"username"`
	Password  string `db:"password"`
	CreatedAt int64  `db:"created_at"`
}

func (row userRow) toDomain() *user.User {
	return &user.User{
		ID:         row.ID,
		Username:   row.Username,
		Credential: user.ParseCredential(row.Password),
		CreatedAt:  fromMillis(row.CreatedAt),
	}
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	query := r.db.Rebind(`
        INSERT INTO users (username, password, created_at)
        VALUES (?, ?, ?)
        RETURNING id
    `)
	err := r.db.QueryRowxContext(ctx, query, u.Username, u.Credential.Stored(), toMillis(u.CreatedAt)).Scan(&u.ID)
	if isUniqueViolation(err) {
		return user.ErrUsernameTaken
	}
	if err != nil {
		return logError(r.logger, "create_user", err)
	}
	return nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.get(ctx, "get_user_by_username", `SELECT id, username, password, created_at FROM users WHERE username = ?`, username)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.get(ctx, "get_user_by_id", `SELECT id, username, password, created_at FROM users WHERE id = ?`, id)
}

func (r *UserRepo) UpdateCredential(ctx context.Context, id int64, c user.Credential) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET password = ? WHERE id = ?`), c.Stored(), id)
	if err != nil {
		return logError(r.logger, "update_user_credential", err, "user_id", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepo) get(ctx context.Context, event, query string, arg any) (*user.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, logError(r.logger, event, err)
	}
	return row.toDomain(), nil
}

var _ user.Repository = (*UserRepo)(nil)
