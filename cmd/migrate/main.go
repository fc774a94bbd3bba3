// Command migrate applies the schema migrations and optionally loads the
// demo data.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"meet-vote/internal/config"
	"meet-vote/internal/domain/user"
	"meet-vote/internal/platform/clock"
	"meet-vote/internal/platform/database"
	"meet-vote/internal/repository/sqlstore"
	"meet-vote/internal/seed"
)

func main() {
	var withSeed bool
	flag.BoolVar(&withSeed, "seed", false, "load the demo account and sample poll after migrating")
	flag.Parse()

	cfg, err := config.LoadDatabase()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, withSeed, logger); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Database, withSeed bool, logger *slog.Logger) error {
	db, err := database.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := sqlstore.Migrate(ctx, db)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "driver", cfg.Driver, "count", len(applied), "files", applied)

	if !withSeed {
		return nil
	}
	users := user.NewService(sqlstore.NewUserRepo(db, logger), user.WithLogger(logger))
	_, err = seed.Demo(ctx, users, sqlstore.NewStore(db, logger), clock.System(), logger)
	return err
}
