// Package tenant serves tenant provisioning and the tenant-scoped routes:
// access context, surface checks, member grants and subscription status.
package tenant

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
	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// CreateRequest names a new tenant.
type CreateRequest struct {
	Name string `json:"name" validate:"required,min=2,max=200"`
}

// CreateResponse is the provisioned tenant and its trial.
type CreateResponse struct {
	Tenant       models.Tenant       `json:"tenant"`
	Subscription models.Subscription `json:"subscription"`
}

// Provisioner creates tenants.
type Provisioner interface {
	Provision(ctx context.Context, creator models.Principal, name string) (models.Tenant, models.Subscription, error)
}

// CreateHandler serves POST /tenants.
type CreateHandler struct {
	log      *slog.Logger
	service  Provisioner
	validate *validator.Validate
}

// NewCreate creates a CreateHandler.
func NewCreate(log *slog.Logger, service Provisioner) *CreateHandler {
	return &CreateHandler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Provision a tenant
// @Description Creates a tenant with a trial subscription and makes the caller its chairperson.
// @Tags Tenants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRequest true "Tenant"
// @Success 201 {object} response.Response{data=CreateResponse}
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /tenants [post]
func (h *CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tenant.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		middlewarectx.WriteError(w, r, log, models.ErrUnauthenticated)
		return
	}

	var req CreateRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	tenant, sub, err := h.service.Provision(r.Context(), p, req.Name)
	if err != nil {
		middlewarectx.WriteError(w, r, log, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(CreateResponse{Tenant: tenant, Subscription: sub}))
}
