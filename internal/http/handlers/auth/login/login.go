// Package login exchanges an email and password for a local token.
package login

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/strata-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/strata-gate/internal/http/request"
	"github.com/magabrotheeeer/strata-gate/internal/http/response"
	"github.com/magabrotheeeer/strata-gate/internal/services/account"
)

// Request holds login credentials.
type Request struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// Service logs users in.
type Service interface {
	Login(ctx context.Context, email, password string) (account.Session, error)
}

// Handler serves POST /login.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Log in
// @Description Checks an email and password and returns a local token. Unknown email and wrong password get the same answer.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Credentials"
// @Success 200 {object} response.Response{data=account.Session}
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse "Account disabled"
// @Failure 422 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Router /login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middlewarectx.WriteError(w, r, log, err)
		return
	}

	log.Info("login success", slog.String("user_id", session.UserID))
	render.JSON(w, r, response.StatusOKWithData(session))
}
