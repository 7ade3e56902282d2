package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/strata-gate/internal/access"
	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// Key is the type of request context keys set by the gate.
type Key string

const (
	// PrincipalKey holds the resolved models.Principal.
	PrincipalKey Key = "principal"
	// AccessKey holds the access.Context of a tenant-scoped request.
	AccessKey Key = "access"
	// TenantKey holds the models.Tenant of a tenant-scoped request.
	TenantKey Key = "tenant"
)

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFrom returns the authenticated caller.
func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(models.Principal)
	return p, ok
}

// WithAccess stores the tenant-scoped access context.
func WithAccess(ctx context.Context, a access.Context) context.Context {
	return context.WithValue(ctx, AccessKey, a)
}

// AccessFrom returns the tenant-scoped access context.
func AccessFrom(ctx context.Context) (access.Context, bool) {
	a, ok := ctx.Value(AccessKey).(access.Context)
	return a, ok
}

// WithTenant stores the tenant of the request.
func WithTenant(ctx context.Context, t models.Tenant) context.Context {
	return context.WithValue(ctx, TenantKey, t)
}

// TenantFrom returns the tenant of the request.
func TenantFrom(ctx context.Context) (models.Tenant, bool) {
	t, ok := ctx.Value(TenantKey).(models.Tenant)
	return t, ok
}
