package api

import (
	"net/http"

	"meet-vote/internal/domain/poll"
	"meet-vote/internal/metrics"
	"meet-vote/internal/platform/apperr"
)

type pollRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Dates       []string `json:"dates"`
}

func (req pollRequest) input() poll.Input {
	return poll.Input{Title: req.Title, Description: req.Description, Dates: req.Dates}
}

// @Summary     Create a poll
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body      pollRequest  true  "Title, optional description and at least 3 dates"
// @Success     201      {object}  poll.OwnerView
// @Failure     400      {object}  apperr.AppError  "validation error"
// @Failure     401      {object}  apperr.AppError
// @Router      /polls [post]
func (h *Handler) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req pollRequest
	if err := decodeJSON(r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	view, err := h.pollSvc.Create(r.Context(), userIDFromCtx(r), req.input())
	if err != nil {
		errorResponse(w, err)
		return
	}
	metrics.IncPollEvent("created")

	writeJSON(w, http.StatusCreated, view)
}

// @Summary     List my polls
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Success     200  {array}   poll.OwnerView
// @Failure     401  {object}  apperr.AppError
// @Router      /polls/mine [get]
func (h *Handler) handleListMyPolls(w http.ResponseWriter, r *http.Request) {
	views, err := h.pollSvc.ListMine(r.Context(), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// @Summary     Get one of my polls with all votes
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Poll ID"
// @Success     200  {object}  poll.PublicView
// @Failure     404  {object}  apperr.AppError  "poll not found"
// @Router      /polls/{id} [get]
func (h *Handler) handleGetMyPoll(w http.ResponseWriter, r *http.Request) {
	id, ok := pollIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.pollSvc.GetMine(r.Context(), userIDFromCtx(r), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// @Summary     Replace a poll's title, description and dates
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      int64        true  "Poll ID"
// @Param       request  body      pollRequest  true  "Full poll content"
// @Success     200      {object}  poll.OwnerView
// @Failure     400      {object}  apperr.AppError  "validation error"
// @Failure     404      {object}  apperr.AppError  "poll not found"
// @Router      /polls/{id} [put]
func (h *Handler) handleUpdatePoll(w http.ResponseWriter, r *http.Request) {
	id, ok := pollIDParam(w, r)
	if !ok {
		return
	}

	var req pollRequest
	if err := decodeJSON(r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	view, err := h.pollSvc.Update(r.Context(), userIDFromCtx(r), id, req.input())
	if err != nil {
		errorResponse(w, err)
		return
	}
	metrics.IncPollEvent("updated")

	writeJSON(w, http.StatusOK, view)
}

// @Summary     Delete a poll and all of its votes
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Poll ID"
// @Success     200  {object}  map[string]bool
// @Failure     404  {object}  apperr.AppError  "poll not found"
// @Router      /polls/{id} [delete]
func (h *Handler) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	id, ok := pollIDParam(w, r)
	if !ok {
		return
	}

	if err := h.pollSvc.Delete(r.Context(), userIDFromCtx(r), id); err != nil {
		errorResponse(w, err)
		return
	}
	metrics.IncPollEvent("deleted")

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// @Summary     Close a poll for voting
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Poll ID"
// @Success     200  {object}  poll.OwnerView
// @Failure     400  {object}  apperr.AppError  "poll already closed"
// @Failure     404  {object}  apperr.AppError  "poll not found"
// @Router      /polls/{id}/close [post]
func (h *Handler) handleClosePoll(w http.ResponseWriter, r *http.Request) {
	id, ok := pollIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.pollSvc.Close(r.Context(), userIDFromCtx(r), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	metrics.IncPollEvent("closed")

	writeJSON(w, http.StatusOK, view)
}

// pollIDParam answers 404 for ids that cannot name a poll.
func pollIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil || id <= 0 {
		errorResponse(w, apperr.NotFound("poll_not_found", "poll not found", err))
		return 0, false
	}
	return id, true
}
