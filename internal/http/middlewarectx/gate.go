// Package middlewarectx holds the request gate: credential verification,
// tenant membership, subscription entitlement and surface checks, and the
// single table that turns their errors into HTTP responses.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/strata-gate/internal/access"
	"github.com/magabrotheeeer/strata-gate/internal/credential"
	"github.com/magabrotheeeer/strata-gate/internal/entitlement"
	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// TenantParam is the chi URL parameter carrying the tenant id.
const TenantParam = "tenantID"

// CredentialVerifier checks a raw bearer token.
type CredentialVerifier interface {
	Verify(ctx context.Context, raw string) (credential.Identity, error)
}

// IdentityResolver maps a verified identity to a user.
type IdentityResolver interface {
	Resolve(ctx context.Context, id credential.Identity) (models.Principal, error)
}

// TenantReader loads tenants and grants.
type TenantReader interface {
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	GetGrant(ctx context.Context, userUID, tenantID string) (*models.TenantAccessGrant, error)
}

// SubscriptionReader loads the subscription of a tenant.
type SubscriptionReader interface {
	GetSubscription(ctx context.Context, tenantID string) (*models.Subscription, error)
}

// DecisionObserver records gate outcomes.
type DecisionObserver interface {
	GateDecision(code, reason string)
}

// Gate builds the middleware chain of gated routes.
type Gate struct {
	verifier      CredentialVerifier
	resolver      IdentityResolver
	tenants       TenantReader
	subscriptions SubscriptionReader
	observer      DecisionObserver
	log           *slog.Logger
	now           func() time.Time
}

// NewGate creates a Gate. observer may be nil.
func NewGate(
	verifier CredentialVerifier,
	resolver IdentityResolver,
	tenants TenantReader,
	subscriptions SubscriptionReader,
	observer DecisionObserver,
	log *slog.Logger,
) *Gate {
	return &Gate{
		verifier:      verifier,
		resolver:      resolver,
		tenants:       tenants,
		subscriptions: subscriptions,
		observer:      observer,
		log:           log,
		now:           time.Now,
	}
}

func (g *Gate) logger(r *http.Request, op string) *slog.Logger {
	return g.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func (g *Gate) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	f := WriteError(w, r, log, err)
	if g.observer != nil {
		g.observer.GateDecision(f.Code, f.Reason)
	}
}

func (g *Gate) pass() {
	if g.observer != nil {
		g.observer.GateDecision("ok", "")
	}
}

// Authenticate verifies the bearer credential and resolves the caller.
// A valid credential with no matching user is answered exactly like an
// invalid one.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "middlewarectx.Authenticate"
		log := g.logger(r, op)

		raw, ok := bearerToken(r)
		if !ok {
			g.fail(w, r, log, models.ErrUnauthenticated)
			return
		}

		id, err := g.verifier.Verify(r.Context(), raw)
		if err != nil {
			g.fail(w, r, log, err)
			return
		}

		principal, err := g.resolver.Resolve(r.Context(), id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				err = models.ErrUnauthenticated
			}
			g.fail(w, r, log, err)
			return
		}

		ctx := WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantMembership resolves the caller's access to the tenant named in the
// URL. Callers without a grant get the same 404 as for a missing tenant.
// It does not look at the subscription.
func (g *Gate) TenantMembership(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "middlewarectx.TenantMembership"
		log := g.logger(r, op)

		principal, ok := PrincipalFrom(r.Context())
		if !ok {
			g.fail(w, r, log, models.ErrUnauthenticated)
			return
		}

		tenantID := chi.URLParam(r, TenantParam)
		if _, err := uuid.Parse(tenantID); err != nil {
			g.fail(w, r, log, models.ErrNotFound)
			return
		}
		log = log.With(sl.Tenant(tenantID), sl.User(principal.UserID))

		tenant, err := g.tenants.GetTenant(r.Context(), tenantID)
		if err != nil {
			g.fail(w, r, log, storageErr(err))
			return
		}

		var ac access.Context
		if principal.SuperAdmin {
			ac = access.ForSuperAdmin(principal, tenantID)
		} else {
			grant, err := g.tenants.GetGrant(r.Context(), principal.UserID, tenantID)
			if err != nil {
				g.fail(w, r, log, storageErr(err))
				return
			}
			ac = access.ForGrant(principal, *grant)
		}

		ctx := WithTenant(r.Context(), *tenant)
		ctx = WithAccess(ctx, ac)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireEntitlement refuses tenants whose subscription does not allow
// access at the time of the request. The subscription is read on every
// call. The super-administrator is never refused.
func (g *Gate) RequireEntitlement(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "middlewarectx.RequireEntitlement"
		log := g.logger(r, op)

		ac, ok := AccessFrom(r.Context())
		if !ok {
			g.fail(w, r, log, models.ErrNotFound)
			return
		}
		if ac.SuperAdmin {
			g.pass()
			next.ServeHTTP(w, r)
			return
		}

		sub, err := g.subscriptions.GetSubscription(r.Context(), ac.TenantID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			sub = nil
		case err != nil:
			g.fail(w, r, log.With(sl.Tenant(ac.TenantID)), storageErr(err))
			return
		}

		if err := entitlement.Evaluate(sub, g.now()).Err(); err != nil {
			g.fail(w, r, log.With(sl.Tenant(ac.TenantID)), err)
			return
		}
		g.pass()
		next.ServeHTTP(w, r)
	})
}

// TenantScope is TenantMembership followed by RequireEntitlement.
func (g *Gate) TenantScope(next http.Handler) http.Handler {
	return g.TenantMembership(g.RequireEntitlement(next))
}

// RequireSurface refuses callers whose accessible surfaces lack surface.
func (g *Gate) RequireSurface(surface models.Surface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequireSurface"
			log := g.logger(r, op).With(slog.String("surface", string(surface)))

			ac, ok := AccessFrom(r.Context())
			if !ok {
				g.fail(w, r, log, models.ErrNotFound)
				return
			}
			if !ac.Surfaces.Has(surface) {
				g.fail(w, r, log, models.ErrInsufficientCapability)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// storageErr keeps not-found and unavailable errors and turns anything else
// into unavailable.
func storageErr(err error) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrUnavailable) {
		return err
	}
	return errors.Join(models.ErrUnavailable, err)
}
