package api

import "net/http"

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type accountResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type loginResponse struct {
	AccessToken string          `json:"access_token"`
	User        accountResponse `json:"user"`
}

// @Summary     Register an organizer account
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      authRequest  true  "Credentials"
// @Success     201      {object}  accountResponse
// @Failure     400      {object}  apperr.AppError  "missing username or password"
// @Failure     409      {object}  apperr.AppError  "username already exists"
// @Router      /auth/register [post]
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	u, err := h.userSvc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, accountResponse{ID: u.ID, Username: u.Username})
}

// @Summary     Log in
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      authRequest  true  "Credentials"
// @Success     200      {object}  loginResponse
// @Failure     401      {object}  apperr.AppError  "invalid credentials"
// @Router      /auth/login [post]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	sess, err := h.authn.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: sess.AccessToken,
		User:        accountResponse{ID: sess.User.ID, Username: sess.User.Username},
	})
}

// @Summary     Current account
// @Tags        auth
// @Security    BearerAuth
// @Produce     json
// @Success     200  {object}  accountResponse
// @Failure     401  {object}  apperr.AppError
// @Failure     404  {object}  apperr.AppError  "user not found"
// @Router      /auth/me [get]
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.userSvc.GetByID(r.Context(), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{ID: u.ID, Username: u.Username})
}
