package tenant

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/strata-gate/internal/access"
	"github.com/magabrotheeeer/strata-gate/internal/entitlement"
	"github.com/magabrotheeeer/strata-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/strata-gate/internal/models"
	"github.com/magabrotheeeer/strata-gate/internal/services/tenancy"
)

const (
	tenantID = "6f1d8a52-5f0e-4a57-9a43-1f3b6f7f2d11"
	memberID = "0b7e2c1a-3b4d-4e5f-8a9b-0c1d2e3f4a5b"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var chair = models.Principal{UserID: "u-chair", Email: "chair@example.com", GlobalRole: models.RoleResident}

func accessFor(role models.Role, special ...models.Surface) access.Context {
	return access.ForGrant(chair, models.TenantAccessGrant{UserUID: chair.UserID, TenantID: tenantID, Role: role, SpecialAccess: special})
}

// withAccess stands in for the gate.
func withAccess(ac access.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middlewarectx.WithPrincipal(r.Context(), chair)
			ctx = middlewarectx.WithAccess(ctx, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func do(h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

type ProvisionerMock struct{ mock.Mock }

func (m *ProvisionerMock) Provision(ctx context.Context, creator models.Principal, name string) (models.Tenant, models.Subscription, error) {
	args := m.Called(ctx, creator, name)
	return args.Get(0).(models.Tenant), args.Get(1).(models.Subscription), args.Error(2)
}

func TestCreateHandler(t *testing.T) {
	svc := new(ProvisionerMock)
	sub := models.NewTrialSubscription(tenantID, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 30)
	svc.On("Provision", mock.Anything, chair, "Harbour View").
		Return(models.Tenant{ID: tenantID, Name: "Harbour View"}, sub, nil).Once()

	r := chi.NewRouter()
	r.With(withAccess(access.Context{})).Post("/tenants", NewCreate(newNoopLogger(), svc).ServeHTTP)

	rec := do(r, http.MethodPost, "/tenants", CreateRequest{Name: "Harbour View"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data CreateResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, tenantID, resp.Data.Tenant.ID)
	assert.Equal(t, models.StatusTrial, resp.Data.Subscription.Status)

	rec = do(r, http.MethodPost, "/tenants", CreateRequest{Name: ""})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	svc.AssertExpectations(t)
}

func TestAccessHandler(t *testing.T) {
	r := chi.NewRouter()
	r.With(withAccess(accessFor(models.RoleResident, models.SurfaceLevies))).
		Get("/tenants/{tenantID}/access", NewAccess(newNoopLogger()).ServeHTTP)

	rec := do(r, http.MethodGet, "/tenants/"+tenantID+"/access", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, chair.UserID, resp.Data["userId"])
	assert.Equal(t, chair.Email, resp.Data["email"])
	assert.Equal(t, tenantID, resp.Data["tenantId"])
	assert.Equal(t, "resident", resp.Data["tenantRole"])
	assert.Equal(t, false, resp.Data["canPostAnnouncements"])
	assert.ElementsMatch(t,
		[]any{"dashboard", "levies", "documents", "maintenance", "communications"},
		resp.Data["accessibleSurfaces"])
}

func TestSurfaceHandler(t *testing.T) {
	tests := []struct {
		name       string
		role       models.Role
		surface    string
		wantStatus int
	}{
		{"allowed", models.RoleTreasurer, "financial", http.StatusNoContent},
		{"not in role", models.RoleResident, "financial", http.StatusForbidden},
		{"admin for chairperson", models.RoleChairperson, "admin", http.StatusNoContent},
		{"unknown surface", models.RoleChairperson, "billing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.With(withAccess(accessFor(tt.role))).
				Get("/tenants/{tenantID}/surfaces/{surface}", NewSurface(newNoopLogger()).ServeHTTP)

			rec := do(r, http.MethodGet, "/tenants/"+tenantID+"/surfaces/"+tt.surface, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

type MemberServiceMock struct{ mock.Mock }

func (m *MemberServiceMock) SetMember(ctx context.Context, editor access.Context, change tenancy.MemberChange) (models.TenantAccessGrant, error) {
	args := m.Called(ctx, editor, change)
	return args.Get(0).(models.TenantAccessGrant), args.Error(1)
}

func (m *MemberServiceMock) RemoveMember(ctx context.Context, editor access.Context, userID string) error {
	return m.Called(ctx, editor, userID).Error(0)
}

func TestMembersHandler(t *testing.T) {
	editor := accessFor(models.RoleChairperson)

	tests := []struct {
		name       string
		method     string
		user       string
		body       any
		setup      func(s *MemberServiceMock)
		wantStatus int
		wantCode   string
	}{
		{
			name:   "put grant",
			method: http.MethodPut,
			user:   memberID,
			body:   MemberRequest{Role: models.RoleResident, SpecialAccess: []models.Surface{models.SurfaceLevies}},
			setup: func(s *MemberServiceMock) {
				s.On("SetMember", mock.Anything, editor, tenancy.MemberChange{
					UserID:        memberID,
					Role:          models.RoleResident,
					SpecialAccess: []models.Surface{models.SurfaceLevies},
				}).Return(models.TenantAccessGrant{UserUID: memberID, TenantID: tenantID, Role: models.RoleResident}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "put invalid role",
			method:     http.MethodPut,
			user:       memberID,
			body:       MemberRequest{Role: models.RoleAdministrator},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalidRequest",
		},
		{
			name:   "put admin surface without right",
			method: http.MethodPut,
			user:   memberID,
			body:   MemberRequest{Role: models.RoleResident, SpecialAccess: []models.Surface{models.SurfaceAdmin}},
			setup: func(s *MemberServiceMock) {
				s.On("SetMember", mock.Anything, editor, mock.Anything).
					Return(models.TenantAccessGrant{}, models.ErrInsufficientCapability).Once()
			},
			wantStatus: http.StatusForbidden,
			wantCode:   middlewarectx.CodeInsufficientCapability,
		},
		{
			name:       "malformed user id",
			method:     http.MethodPut,
			user:       "nope",
			body:       MemberRequest{Role: models.RoleResident},
			wantStatus: http.StatusNotFound,
			wantCode:   middlewarectx.CodeNotFound,
		},
		{
			name:   "delete grant",
			method: http.MethodDelete,
			user:   memberID,
			setup: func(s *MemberServiceMock) {
				s.On("RemoveMember", mock.Anything, editor, memberID).Return(nil).Once()
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name:   "delete missing grant",
			method: http.MethodDelete,
			user:   memberID,
			setup: func(s *MemberServiceMock) {
				s.On("RemoveMember", mock.Anything, editor, memberID).Return(models.ErrNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
			wantCode:   middlewarectx.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MemberServiceMock)
			if tt.setup != nil {
				tt.setup(svc)
			}
			h := NewMembers(newNoopLogger(), svc)
			r := chi.NewRouter()
			r.With(withAccess(editor)).Put("/tenants/{tenantID}/members/{userID}", h.Put)
			r.With(withAccess(editor)).Delete("/tenants/{tenantID}/members/{userID}", h.Delete)

			rec := do(r, tt.method, "/tenants/"+tenantID+"/members/"+tt.user, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				var resp map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantCode, resp["code"])
			}
			svc.AssertExpectations(t)
		})
	}
}

type StatusReaderMock struct{ mock.Mock }

func (m *StatusReaderMock) SubscriptionStatus(ctx context.Context, tenantID string) (tenancy.Status, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(tenancy.Status), args.Error(1)
}

func TestSubscriptionHandler(t *testing.T) {
	svc := new(StatusReaderMock)
	svc.On("SubscriptionStatus", mock.Anything, tenantID).Return(tenancy.Status{
		Subscription:    &models.Subscription{TenantID: tenantID, Status: models.StatusCancelled},
		EffectiveStatus: models.StatusCancelled,
		Decision:        entitlement.Decision{Reason: models.ReasonSubscriptionCancelled},
	}, nil).Once()

	r := chi.NewRouter()
	r.With(withAccess(accessFor(models.RoleResident))).
		Get("/tenants/{tenantID}/subscription", NewSubscription(newNoopLogger(), svc).ServeHTTP)

	rec := do(r, http.MethodGet, "/tenants/"+tenantID+"/subscription", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			EffectiveStatus string `json:"effective_status"`
			Decision        struct {
				Entitled bool   `json:"entitled"`
				Reason   string `json:"reason"`
			} `json:"decision"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cancelled", resp.Data.EffectiveStatus)
	assert.False(t, resp.Data.Decision.Entitled)
	assert.Equal(t, "subscriptionCancelled", resp.Data.Decision.Reason)
}
