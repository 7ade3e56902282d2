// Package me serves the authenticated caller's own data. Neither route is
// tenant scoped, so a blocked tenant never locks a user out of them.
package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/strata-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/strata-gate/internal/http/response"
	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// ProfileHandler serves GET /me.
type ProfileHandler struct {
	log *slog.Logger
}

// NewProfile creates a ProfileHandler.
func NewProfile(log *slog.Logger) *ProfileHandler {
	return &ProfileHandler{log: log}
}

// ServeHTTP godoc
// @Summary Current principal
// @Tags Me
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.Principal}
// @Failure 401 {object} response.ErrorResponse
// @Router /me [get]
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.me.profile"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		middlewarectx.WriteError(w, r, log, models.ErrUnauthenticated)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(p))
}

// MembershipLister lists the tenants of a principal.
type MembershipLister interface {
	Memberships(ctx context.Context, p models.Principal) ([]models.TenantMembership, error)
}

// TenantsHandler serves GET /me/tenants.
type TenantsHandler struct {
	log     *slog.Logger
	service MembershipLister
}

// NewTenants creates a TenantsHandler.
func NewTenants(log *slog.Logger, service MembershipLister) *TenantsHandler {
	return &TenantsHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Tenants of the caller
// @Description Lists the caller's grants with their tenants. The super-administrator sees every tenant.
// @Tags Me
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]models.TenantMembership}
// @Failure 401 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /me/tenants [get]
func (h *TenantsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.me.tenants"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		middlewarectx.WriteError(w, r, log, models.ErrUnauthenticated)
		return
	}

	ms, err := h.service.Memberships(r.Context(), p)
	if err != nil {
		middlewarectx.WriteError(w, r, log, err)
		return
	}
	if ms == nil {
		ms = []models.TenantMembership{}
	}
	render.JSON(w, r, response.StatusOKWithData(ms))
}
