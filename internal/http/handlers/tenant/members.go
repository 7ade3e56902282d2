package tenant

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/strata-gate/internal/access"
	"github.com/magabrotheeeer/strata-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/strata-gate/internal/http/request"
	"github.com/magabrotheeeer/strata-gate/internal/http/response"
	"github.com/magabrotheeeer/strata-gate/internal/models"
	"github.com/magabrotheeeer/strata-gate/internal/services/tenancy"
)

// UserParam is the chi URL parameter naming a member.
const UserParam = "userID"

// MemberRequest is the grant to store for a member.
type MemberRequest struct {
	Role                 models.Role      `json:"role" validate:"required,oneof=chairperson treasurer secretary council_member property_manager resident"`
	CanPostAnnouncements bool             `json:"can_post_announcements"`
	SpecialAccess        []models.Surface `json:"special_access" validate:"max=12"`
}

// MemberService edits grants.
type MemberService interface {
	SetMember(ctx context.Context, editor access.Context, change tenancy.MemberChange) (models.TenantAccessGrant, error)
	RemoveMember(ctx context.Context, editor access.Context, userID string) error
}

// MembersHandler serves PUT and DELETE /tenants/{tenantID}/members/{userID}.
type MembersHandler struct {
	log      *slog.Logger
	service  MemberService
	validate *validator.Validate
}

// NewMembers creates a MembersHandler.
func NewMembers(log *slog.Logger, service MemberService) *MembersHandler {
	return &MembersHandler{log: log, service: service, validate: validator.New()}
}

// Put godoc
// @Summary Set a member's grant
// @Description Creates or replaces the grant of a user. The caller must be allowed to assign the role and every special surface.
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param userID path string true "User ID"
// @Param request body MemberRequest true "Grant"
// @Success 200 {object} response.Response{data=models.TenantAccessGrant}
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /tenants/{tenantID}/members/{userID} [put]
func (h *MembersHandler) Put(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tenant.members.put"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	ac, userID, ok := h.target(w, r, log)
	if !ok {
		return
	}

	var req MemberRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	grant, err := h.service.SetMember(r.Context(), ac, tenancy.MemberChange{
		UserID:               userID,
		Role:                 req.Role,
		CanPostAnnouncements: req.CanPostAnnouncements,
		SpecialAccess:        req.SpecialAccess,
	})
	if err != nil {
		middlewarectx.WriteError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(grant))
}

// Delete godoc
// @Summary Revoke a member's grant
// @Tags Members
// @Security BearerAuth
// @Param tenantID path string true "Tenant ID"
// @Param userID path string true "User ID"
// @Success 204
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /tenants/{tenantID}/members/{userID} [delete]
func (h *MembersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.tenant.members.delete"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	ac, userID, ok := h.target(w, r, log)
	if !ok {
		return
	}

	if err := h.service.RemoveMember(r.Context(), ac, userID); err != nil {
		middlewarectx.WriteError(w, r, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MembersHandler) target(w http.ResponseWriter, r *http.Request, log *slog.Logger) (access.Context, string, bool) {
	ac, ok := middlewarectx.AccessFrom(r.Context())
	if !ok {
		middlewarectx.WriteError(w, r, log, models.ErrNotFound)
		return access.Context{}, "", false
	}
	userID := chi.URLParam(r, UserParam)
	if _, err := uuid.Parse(userID); err != nil {
		middlewarectx.WriteError(w, r, log, models.ErrNotFound)
		return access.Context{}, "", false
	}
	return ac, userID, true
}
