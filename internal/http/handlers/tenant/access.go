package tenant

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/strata-gate/internal/access"
	"github.com/magabrotheeeer/strata-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/strata-gate/internal/http/response"
	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// SurfaceParam is the chi URL parameter naming a surface.
const SurfaceParam = "surface"

// AccessView is the JSON form of the caller's access in one tenant.
type AccessView struct {
	access.Context
	AccessibleSurfaces []models.Surface `json:"accessibleSurfaces"`
}

// AccessHandler serves GET /tenants/{tenantID}/access.
type AccessHandler struct {
	log *slog.Logger
}

// NewAccess creates an AccessHandler.
func NewAccess(log *slog.Logger) *AccessHandler {
	return &AccessHandler{log: log}
}

// ServeHTTP godoc
// @Summary Access context
// @Description Returns the caller's role and accessible surfaces in the tenant.
// @Tags Tenants
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 200 {object} response.Response{data=AccessView}
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse "Not entitled"
// @Failure 404 {object} response.ErrorResponse
// @Router /tenants/{tenantID}/access [get]
func (h *AccessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tenant.access"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	ac, ok := middlewarectx.AccessFrom(r.Context())
	if !ok {
		middlewarectx.WriteError(w, r, log, models.ErrNotFound)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(AccessView{
		Context:            ac,
		AccessibleSurfaces: ac.AccessibleSurfaces(),
	}))
}

// SurfaceHandler serves GET /tenants/{tenantID}/surfaces/{surface}. It
// answers 204 when the caller may open the surface.
type SurfaceHandler struct {
	log *slog.Logger
}

// NewSurface creates a SurfaceHandler.
func NewSurface(log *slog.Logger) *SurfaceHandler {
	return &SurfaceHandler{log: log}
}

// ServeHTTP godoc
// @Summary Check one surface
// @Tags Tenants
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param surface path string true "Surface"
// @Success 204
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "Unknown tenant or surface"
// @Router /tenants/{tenantID}/surfaces/{surface} [get]
func (h *SurfaceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tenant.surface"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	ac, ok := middlewarectx.AccessFrom(r.Context())
	if !ok {
		middlewarectx.WriteError(w, r, log, models.ErrNotFound)
		return
	}

	surface := models.Surface(chi.URLParam(r, SurfaceParam))
	if !surface.IsKnown() {
		middlewarectx.WriteError(w, r, log, models.ErrNotFound)
		return
	}
	if !ac.Surfaces.Has(surface) {
		middlewarectx.WriteError(w, r, log, models.ErrInsufficientCapability)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
