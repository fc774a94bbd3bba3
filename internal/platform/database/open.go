package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured backend.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres, "pgx":
		return NewPostgres(ctx, dsn)
	case DriverSQLite, "":
		return NewSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

// Dialect names the SQL flavour behind db, used to pick migrations and
// dialect-only clauses.
func Dialect(db *sqlx.DB) string {
	if sqlx.BindType(db.DriverName()) == sqlx.DOLLAR {
		return DriverPostgres
	}
	return DriverSQLite
}
