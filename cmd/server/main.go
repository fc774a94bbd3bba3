package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "meet-vote/docs"
	"meet-vote/internal/auth"
	"meet-vote/internal/config"
	"meet-vote/internal/domain/poll"
	"meet-vote/internal/domain/user"
	"meet-vote/internal/domain/vote"
	api "meet-vote/internal/http"
	"meet-vote/internal/metrics"
	"meet-vote/internal/platform/clock"
	"meet-vote/internal/platform/database"
	jwtpkg "meet-vote/internal/platform/jwt"
	"meet-vote/internal/platform/token"
	"meet-vote/internal/repository/sqlstore"
	"meet-vote/internal/worker"
)

// @title           Meet Vote API
// @version         1.0
// @description     Meeting date polls: organizers propose dates, participants vote through a public link.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger(os.Stdout)
	slog.SetDefault(logger)
	api.SetLogger(logger)
	metrics.Register()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Error("db connect error", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		applied, err := sqlstore.Migrate(ctx, db)
		if err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied", "count", len(applied), "files", applied)
	}

	store := sqlstore.NewStore(db, logger)
	userSvc := user.NewService(sqlstore.NewUserRepo(db, logger), user.WithLogger(logger))
	pollSvc := poll.NewService(store, token.NewGenerator(), poll.WithClock(clock.System()), poll.WithLogger(logger))
	voteSvc := vote.NewService(store, clock.System())
	authn := auth.NewJWTAuthenticator(userSvc, jwtpkg.NewManager(cfg.JWTSecret, cfg.JWTIssuer), cfg.JWTTTL)

	voteCh := make(chan worker.VoteEvent, 100)
	statsWorker := worker.NewStatsWorker(voteCh, logger)

	router := api.NewRouter(api.Services{
		Users: userSvc,
		Polls: pollSvc,
		Votes: voteSvc,
		Auth:  authn,
	}, voteCh, store, api.Settings{
		CORSOrigins:       cfg.CORSOrigins,
		VoteRatePerMinute: cfg.VoteRatePerMinute,
		VoteBurst:         cfg.VoteBurst,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go statsWorker.Run(workerCtx)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		logger.Error("listen error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	stopWorker()

	logger.Info("server stopped")
}
