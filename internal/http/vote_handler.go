package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"meet-vote/internal/domain/poll"
	"meet-vote/internal/domain/vote"
	"meet-vote/internal/worker"
)

type voteRequest struct {
	Name       string                `json:"name"`
	Selections []vote.SelectionInput `json:"selections"`
}

type voteResponse struct {
	OK   bool            `json:"ok"`
	Poll poll.PublicView `json:"poll"`
}

// @Summary     Public view of an open poll
// @Tags        public
// @Produce     json
// @Param       token  path      string  true  "Public poll token"
// @Success     200    {object}  poll.PublicView
// @Failure     404    {object}  apperr.AppError  "unknown or closed poll"
// @Router      /public/polls/{token} [get]
func (h *Handler) handleGetPublicPoll(w http.ResponseWriter, r *http.Request) {
	view, err := h.voteSvc.GetPublic(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// @Summary     Submit or replace a vote
// @Tags        public
// @Accept      json
// @Produce     json
// @Param       token    path      string       true  "Public poll token"
// @Param       request  body      voteRequest  true  "Voter name and per-date selections"
// @Success     200      {object}  voteResponse
// @Failure     400      {object}  apperr.AppError  "validation error"
// @Failure     404      {object}  apperr.AppError  "unknown or closed poll"
// @Failure     429      {object}  apperr.AppError  "rate limited"
// @Router      /public/polls/{token}/vote [post]
func (h *Handler) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	view, err := h.voteSvc.Submit(r.Context(), chi.URLParam(r, "token"), req.Name, req.Selections)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.publishVote(strings.TrimSpace(req.Name), view)
	writeJSON(w, http.StatusOK, voteResponse{OK: true, Poll: view})
}

// publishVote hands the submission to the stats worker without blocking the
// request when the queue is full.
func (h *Handler) publishVote(voter string, view poll.PublicView) {
	if h.voteCh == nil {
		return
	}
	ev := worker.VoteEvent{PollID: view.ID, Voter: voter}
	for _, v := range view.Votes {
		if v.Name != voter {
			continue
		}
		for _, s := range v.Selections {
			ev.Selections = append(ev.Selections, poll.Selection{Date: s.Date, Value: s.Value})
		}
	}
	select {
	case h.voteCh <- ev:
	default:
	}
}
