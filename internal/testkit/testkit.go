// Package testkit builds migrated in-memory databases for package tests.
package testkit

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jmoiron/sqlx"

	"meet-vote/internal/domain/user"
	"meet-vote/internal/platform/database"
	"meet-vote/internal/repository/sqlstore"
)

// DB opens a private in-memory SQLite database with the schema applied. It
// is closed when the test ends.
func DB(t testing.TB) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewSQLite(ctx, database.MemoryDSN)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := sqlstore.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Store returns a poll store over db.
func Store(db *sqlx.DB) *sqlstore.Store {
	return sqlstore.NewStore(db, Logger())
}

// CreateUser inserts an account with a plaintext credential and returns its
// id.
func CreateUser(t testing.TB, db *sqlx.DB, username string) int64 {
	t.Helper()
	u := &user.User{Username: username, Credential: user.LegacyPlaintextCredential("password")}
	if err := sqlstore.NewUserRepo(db, Logger()).Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u.ID
}

// Count runs a COUNT(*) query.
func Count(t testing.TB, db *sqlx.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.Get(&n, db.Rebind(query), args...); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}
