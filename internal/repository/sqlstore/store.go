// Package sqlstore implements the poll and user repositories over
// database/sql through sqlx. The same queries run on PostgreSQL (pgx) and
// SQLite (modernc); they are written with ? placeholders and rebound for
// the active driver.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"meet-vote/internal/domain/poll"
	"meet-vote/internal/platform/database"
	"meet-vote/internal/repository/sqlstore/migrations"
)

// Store is the poll unit of work.
type Store struct {
	db      *sqlx.DB
	dialect string
	logger  *slog.Logger
}

func NewStore(db *sqlx.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, dialect: database.Dialect(db), logger: logger}
}

func (s *Store) WithinTx(ctx context.Context, fn func(poll.Repository) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return s.logError("begin_tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&txRepo{tx: tx, dialect: s.dialect, logger: s.logger}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return s.logError("commit_tx", err)
	}
	return nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema for the database's dialect.
func Migrate(ctx context.Context, db *sqlx.DB) ([]string, error) {
	applied, err := database.ApplyMigrations(ctx, db, migrations.FS, database.Dialect(db))
	if err != nil {
		return applied, fmt.Errorf("migrate %s: %w", database.Dialect(db), err)
	}
	return applied, nil
}

func (s *Store) logError(event string, err error, attrs ...any) error {
	return logError(s.logger, event, err, attrs...)
}

func logError(logger *slog.Logger, event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields,
		"event", event,
		"layer", "repository",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	logger.Error("sql repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
