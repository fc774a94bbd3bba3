package api

import (
	"errors"
	"net/http"

	"meet-vote/internal/auth"
	"meet-vote/internal/domain/poll"
	"meet-vote/internal/domain/user"
	"meet-vote/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	if appErr.StatusCode() >= http.StatusInternalServerError && appErr.Err != nil {
		slogLogger.Error("request failed", "code", appErr.Code, "error", appErr.Err)
	}
	writeJSON(w, appErr.StatusCode(), appErr)
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validation *poll.ValidationError
	if errors.As(err, &validation) {
		return apperr.BadRequest("validation_error", validation.Message, err)
	}

	switch {
	case errors.Is(err, poll.ErrNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	case errors.Is(err, poll.ErrAlreadyClosed):
		return apperr.BadRequest("poll_already_closed", "poll already closed", err)
	case errors.Is(err, poll.ErrConflict):
		return apperr.Conflict("conflict", "conflicting update, please retry", err)
	case errors.Is(err, user.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "invalid credentials", err)
	case errors.Is(err, user.ErrUsernameTaken):
		return apperr.Conflict("username_taken", "username already exists", err)
	case errors.Is(err, user.ErrMissingCredentials):
		return apperr.BadRequest("missing_credentials", "username and password are required", err)
	case errors.Is(err, user.ErrNotFound):
		return apperr.NotFound("user_not_found", "user not found", err)
	case errors.Is(err, auth.ErrUnauthenticated):
		return apperr.Unauthorized("unauthorized", "missing or invalid token", err)
	default:
		return apperr.FromError(err)
	}
}
