// Package signup registers local users.
package signup

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

// Request is a new account.
type Request struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Service registers users.
type Service interface {
	Register(ctx context.Context, email, name, password string) (account.Session, error)
}

// Handler serves POST /signup.
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
// @Summary Sign up
// @Description Registers a resident account with a local password and returns a local token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "New account"
// @Success 201 {object} response.Response{data=account.Session}
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Email already registered"
// @Failure 422 {object} response.ErrorResponse
// @Router /signup [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.signup"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	session, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		middlewarectx.WriteError(w, r, log, err)
		return
	}

	log.Info("user signed up", slog.String("user_id", session.UserID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(session))
}
