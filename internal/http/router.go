package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"meet-vote/internal/auth"
	"meet-vote/internal/domain/poll"
	"meet-vote/internal/domain/user"
	"meet-vote/internal/domain/vote"
	"meet-vote/internal/platform/apperr"
	"meet-vote/internal/worker"
)

// Pinger reports database readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Settings struct {
	CORSOrigins       []string
	VoteRatePerMinute int
	VoteBurst         int
}

type Services struct {
	Users *user.Service
	Polls *poll.Service
	Votes *vote.Service
	Auth  auth.Authenticator
}

type Handler struct {
	userSvc *user.Service
	pollSvc *poll.Service
	voteSvc *vote.Service
	authn   auth.Authenticator
	voteCh  chan<- worker.VoteEvent
	db      Pinger
}

func NewRouter(svc Services, voteCh chan<- worker.VoteEvent, db Pinger, settings Settings) http.Handler {
	h := &Handler{
		userSvc: svc.Users,
		pollSvc: svc.Polls,
		voteSvc: svc.Votes,
		authn:   svc.Auth,
		voteCh:  voteCh,
		db:      db,
	}

	perMinute := settings.VoteRatePerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	burst := settings.VoteBurst
	if burst <= 0 {
		burst = 3
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(RequestLogger)
	r.Use(CORSMiddleware(settings.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)

	r.Get("/public/polls/{token}", h.handleGetPublicPoll)
	r.With(RateLimitVotes(rate.Every(time.Minute/time.Duration(perMinute)), burst)).
		Post("/public/polls/{token}/vote", h.handleSubmitVote)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.authn))

		r.Get("/auth/me", h.handleMe)
		r.Post("/polls", h.handleCreatePoll)
		r.Get("/polls/mine", h.handleListMyPolls)
		r.Get("/polls/{id}", h.handleGetMyPoll)
		r.Put("/polls/{id}", h.handleUpdatePoll)
		r.Delete("/polls/{id}", h.handleDeletePoll)
		r.Post("/polls/{id}/close", h.handleClosePoll)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// zero-valued so the domain reports the missing fields.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		switch typeErr.Field {
		case "dates":
			return poll.Invalidf("dates must be an array")
		case "selections":
			return poll.Invalidf("selections must be a non-empty array")
		}
	}
	return apperr.BadRequest("invalid_input", "invalid request body", err)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	return strconv.ParseInt(idStr, 10, 64)
}

// @Summary     Readiness probe
// @Tags        system
// @Produce     json
// @Success     200  {object}  map[string]string
// @Failure     503  {object}  apperr.AppError
// @Router      /ready [get]
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		errorResponse(w, apperr.Unavailable("db_unavailable", "database not configured", nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		errorResponse(w, apperr.Unavailable("db_unavailable", "database not ready", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
