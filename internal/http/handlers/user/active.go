// Package user serves super-administrator actions on user accounts.
package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/strata-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/strata-gate/internal/http/request"
	"github.com/magabrotheeeer/strata-gate/internal/http/response"
	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// UserParam is the chi URL parameter naming the user.
const UserParam = "userID"

// ActiveRequest sets the active flag.
type ActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// Service toggles accounts.
type Service interface {
	SetActive(ctx context.Context, userID string, active bool) error
}

// ActiveHandler serves PATCH /users/{userID}.
type ActiveHandler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// NewActive creates an ActiveHandler.
func NewActive(log *slog.Logger, service Service) *ActiveHandler {
	return &ActiveHandler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Enable or disable a user
// @Description Super-administrator only. Disabled users are refused on their next request.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Param request body ActiveRequest true "Flag"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{userID} [patch]
func (h *ActiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.active"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		middlewarectx.WriteError(w, r, log, models.ErrUnauthenticated)
		return
	}
	if !p.SuperAdmin {
		middlewarectx.WriteError(w, r, log, models.ErrInsufficientCapability)
		return
	}

	userID := chi.URLParam(r, UserParam)
	if _, err := uuid.Parse(userID); err != nil {
		middlewarectx.WriteError(w, r, log, models.ErrNotFound)
		return
	}

	var req ActiveRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	if err := h.service.SetActive(r.Context(), userID, *req.Active); err != nil {
		middlewarectx.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user_id": userID,
		"active":  *req.Active,
	}))
}
