package tenant

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/strata-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/strata-gate/internal/http/response"
	"github.com/magabrotheeeer/strata-gate/internal/models"
	"github.com/magabrotheeeer/strata-gate/internal/services/tenancy"
)

// StatusReader evaluates a tenant's subscription.
type StatusReader interface {
	SubscriptionStatus(ctx context.Context, tenantID string) (tenancy.Status, error)
}

// SubscriptionHandler serves GET /tenants/{tenantID}/subscription. It sits
// behind membership only, so members of a blocked tenant can see why.
type SubscriptionHandler struct {
	log     *slog.Logger
	service StatusReader
}

// NewSubscription creates a SubscriptionHandler.
func NewSubscription(log *slog.Logger, service StatusReader) *SubscriptionHandler {
	return &SubscriptionHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Subscription status
// @Description Returns the tenant subscription and whether it currently allows access.
// @Tags Tenants
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Success 200 {object} response.Response{data=tenancy.Status}
// @Failure 404 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /tenants/{tenantID}/subscription [get]
func (h *SubscriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tenant.subscription"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	ac, ok := middlewarectx.AccessFrom(r.Context())
	if !ok {
		middlewarectx.WriteError(w, r, log, models.ErrNotFound)
		return
	}

	status, err := h.service.SubscriptionStatus(r.Context(), ac.TenantID)
	if err != nil {
		middlewarectx.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(status))
}
