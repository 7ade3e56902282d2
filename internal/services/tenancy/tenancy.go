// Package tenancy provisions tenants and manages who may access them.
//
// Tenant records are cached in Redis. Grants and subscriptions are never
// cached: the gate reads them on every request.
package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/strata-gate/internal/access"
	"github.com/magabrotheeeer/strata-gate/internal/cache"
	"github.com/magabrotheeeer/strata-gate/internal/entitlement"
	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// Repository is the storage the service needs.
type Repository interface {
	CreateTenant(ctx context.Context, tenant models.Tenant, sub models.Subscription, grant *models.TenantAccessGrant) error
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]models.Tenant, error)
	GetGrant(ctx context.Context, userUID, tenantID string) (*models.TenantAccessGrant, error)
	UpsertGrant(ctx context.Context, grant models.TenantAccessGrant) error
	DeleteGrant(ctx context.Context, userUID, tenantID string) error
	ListMemberships(ctx context.Context, userUID string) ([]models.TenantMembership, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetSubscription(ctx context.Context, tenantID string) (*models.Subscription, error)
}

// Cache stores tenant records.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Service implements tenant provisioning and grant management.
type Service struct {
	repo      Repository
	cache     Cache
	cacheTTL  time.Duration
	trialDays int
	log       *slog.Logger
	now       func() time.Time
}

// New creates a Service. cache may be nil.
func New(repo Repository, cache Cache, cacheTTL time.Duration, trialDays int, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		cacheTTL:  cacheTTL,
		trialDays: trialDays,
		log:       log,
		now:       time.Now,
	}
}

// GetTenant returns the tenant, from cache when possible. Cache failures
// fall through to storage.
func (s *Service) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	const op = "tenancy.GetTenant"
	key := cache.TenantKey(tenantID)

	if s.cache != nil {
		var cached models.Tenant
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn("tenant cache read failed", slog.String("op", op), sl.Tenant(tenantID), sl.Err(err))
		} else if found {
			return &cached, nil
		}
	}

	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, tenant, s.cacheTTL); err != nil {
			s.log.Warn("tenant cache write failed", slog.String("op", op), sl.Tenant(tenantID), sl.Err(err))
		}
	}
	return tenant, nil
}

// GetGrant returns the grant of userUID in tenantID.
func (s *Service) GetGrant(ctx context.Context, userUID, tenantID string) (*models.TenantAccessGrant, error) {
	const op = "tenancy.GetGrant"
	grant, err := s.repo.GetGrant(ctx, userUID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return grant, nil
}

// GetSubscription returns the subscription of tenantID.
func (s *Service) GetSubscription(ctx context.Context, tenantID string) (*models.Subscription, error) {
	const op = "tenancy.GetSubscription"
	sub, err := s.repo.GetSubscription(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// Status is a subscription together with its evaluation at a point in time.
type Status struct {
	Subscription    *models.Subscription      `json:"subscription"`
	EffectiveStatus models.SubscriptionStatus `json:"effective_status"`
	Decision        entitlement.Decision      `json:"decision"`
}

// SubscriptionStatus evaluates the subscription of tenantID now. A missing
// subscription is reported as a refusal, not as an error.
func (s *Service) SubscriptionStatus(ctx context.Context, tenantID string) (Status, error) {
	const op = "tenancy.SubscriptionStatus"

	sub, err := s.repo.GetSubscription(ctx, tenantID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return Status{}, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now()
	return Status{
		Subscription:    sub,
		EffectiveStatus: entitlement.EffectiveStatus(sub, now),
		Decision:        entitlement.Evaluate(sub, now),
	}, nil
}

// Provision creates a tenant in trial and makes creator its chairperson.
// The super-administrator has no user record to hold a grant and reaches
// every tenant anyway, so its tenants start without members.
func (s *Service) Provision(ctx context.Context, creator models.Principal, name string) (models.Tenant, models.Subscription, error) {
	const op = "tenancy.Provision"

	now := s.now().UTC()
	tenant := models.Tenant{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
	}
	sub := models.NewTrialSubscription(tenant.ID, now, s.trialDays)
	var grant *models.TenantAccessGrant
	if !creator.SuperAdmin {
		grant = &models.TenantAccessGrant{
			UserUID:   creator.UserID,
			TenantID:  tenant.ID,
			Role:      models.RoleChairperson,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	if err := s.repo.CreateTenant(ctx, tenant, sub, grant); err != nil {
		return models.Tenant{}, models.Subscription{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("tenant provisioned", sl.Tenant(tenant.ID), sl.User(creator.UserID))

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.TenantKey(tenant.ID), tenant, s.cacheTTL); err != nil {
			s.log.Warn("tenant cache write failed", slog.String("op", op), sl.Tenant(tenant.ID), sl.Err(err))
		}
	}
	return tenant, sub, nil
}

// Memberships lists the tenants p may open. The super-administrator sees
// every tenant, each with an administrator pseudo-grant.
func (s *Service) Memberships(ctx context.Context, p models.Principal) ([]models.TenantMembership, error) {
	const op = "tenancy.Memberships"

	if !p.SuperAdmin {
		ms, err := s.repo.ListMemberships(ctx, p.UserID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return ms, nil
	}

	tenants, err := s.repo.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ms := make([]models.TenantMembership, 0, len(tenants))
	for _, t := range tenants {
		ms = append(ms, models.TenantMembership{
			Tenant: t,
			Grant: models.TenantAccessGrant{
				UserUID:              p.UserID,
				TenantID:             t.ID,
				Role:                 models.RoleAdministrator,
				CanPostAnnouncements: true,
				SpecialAccess:        access.All().Slice(),
			},
		})
	}
	return ms, nil
}

// MemberChange is a requested grant for one user.
type MemberChange struct {
	UserID               string
	Role                 models.Role
	CanPostAnnouncements bool
	SpecialAccess        []models.Surface
}

// SetMember creates or replaces the grant of change.UserID in the tenant of
// editor. editor must be allowed to assign the role and every special
// surface.
func (s *Service) SetMember(ctx context.Context, editor access.Context, change MemberChange) (models.TenantAccessGrant, error) {
	const op = "tenancy.SetMember"

	grantor := editor.Grantor()
	if !access.CanAssignRole(grantor, change.Role) {
		return models.TenantAccessGrant{}, fmt.Errorf("%s: role %s: %w", op, change.Role, models.ErrInsufficientCapability)
	}
	for _, surface := range change.SpecialAccess {
		if !access.CanGrant(grantor, surface) {
			return models.TenantAccessGrant{}, fmt.Errorf("%s: surface %s: %w", op, surface, models.ErrInsufficientCapability)
		}
	}

	if _, err := s.repo.GetUser(ctx, change.UserID); err != nil {
		return models.TenantAccessGrant{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	grant := models.TenantAccessGrant{
		UserUID:              change.UserID,
		TenantID:             editor.TenantID,
		Role:                 change.Role,
		CanPostAnnouncements: change.CanPostAnnouncements,
		SpecialAccess:        access.NewSet(change.SpecialAccess...).Slice(),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repo.UpsertGrant(ctx, grant); err != nil {
		return models.TenantAccessGrant{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("grant updated",
		sl.Tenant(editor.TenantID),
		sl.User(change.UserID),
		slog.String("role", string(change.Role)),
		slog.String("by", editor.UserID),
	)
	return grant, nil
}

// RemoveMember revokes the grant of userID in the tenant of editor.
func (s *Service) RemoveMember(ctx context.Context, editor access.Context, userID string) error {
	const op = "tenancy.RemoveMember"

	if !editor.SuperAdmin && !editor.Surfaces.Has(models.SurfaceAdmin) {
		return fmt.Errorf("%s: %w", op, models.ErrInsufficientCapability)
	}

	if err := s.repo.DeleteGrant(ctx, userID, editor.TenantID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("grant revoked", sl.Tenant(editor.TenantID), sl.User(userID), slog.String("by", editor.UserID))
	return nil
}
