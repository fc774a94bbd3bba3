package database

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteDriver = "sqlite"

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

func init() {
	sqlx.BindDriver(sqliteDriver, sqlx.QUESTION)
}

// NewSQLite opens a SQLite database with foreign keys on and write
// transactions started IMMEDIATE, so concurrent writers queue on the busy
// timeout instead of failing on lock upgrade.
func NewSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	params := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	memory := path == MemoryDSN
	if !memory {
		path = filepath.Clean(path)
		params += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sqlx.Open(sqliteDriver, path+"?"+params)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}
