package stratagate

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/strata-gate/internal/config"
	"github.com/magabrotheeeer/strata-gate/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/strata-gate/internal/http/handlers/auth/signup"
	"github.com/magabrotheeeer/strata-gate/internal/http/handlers/health"
	"github.com/magabrotheeeer/strata-gate/internal/http/handlers/me"
	"github.com/magabrotheeeer/strata-gate/internal/http/handlers/tenant"
	"github.com/magabrotheeeer/strata-gate/internal/http/handlers/user"
	"github.com/magabrotheeeer/strata-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/strata-gate/internal/models"
	"github.com/magabrotheeeer/strata-gate/internal/services/account"
	"github.com/magabrotheeeer/strata-gate/internal/services/tenancy"
)

// Services bundles what the routes call into.
type Services struct {
	Gate    *middlewarectx.Gate
	Account *account.Service
	Tenancy *tenancy.Service
	Checks  map[string]health.Check
	Metrics http.Handler
}

// RegisterRoutes mounts every route of the API on r.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg config.HTTPServer, svc Services) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	gate := svc.Gate

	r.Route("/api/v1", func(r chi.Router) {
		r.With(httprate.LimitByIP(cfg.LoginRateLimit, cfg.LoginRateWindow)).
			Post("/login", login.New(logger, svc.Account).ServeHTTP)
		r.Post("/signup", signup.New(logger, svc.Account).ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(gate.Authenticate)

			r.Get("/me", me.NewProfile(logger).ServeHTTP)
			r.Get("/me/tenants", me.NewTenants(logger, svc.Tenancy).ServeHTTP)
			r.Post("/tenants", tenant.NewCreate(logger, svc.Tenancy).ServeHTTP)
			r.Patch("/users/{"+user.UserParam+"}", user.NewActive(logger, svc.Account).ServeHTTP)

			r.Route("/tenants/{"+middlewarectx.TenantParam+"}", func(r chi.Router) {
				r.With(gate.TenantMembership).
					Get("/subscription", tenant.NewSubscription(logger, svc.Tenancy).ServeHTTP)

				r.Group(func(r chi.Router) {
					r.Use(gate.TenantScope)

					r.Get("/access", tenant.NewAccess(logger).ServeHTTP)
					r.Get("/surfaces/{"+tenant.SurfaceParam+"}", tenant.NewSurface(logger).ServeHTTP)

					members := tenant.NewMembers(logger, svc.Tenancy)
					r.With(gate.RequireSurface(models.SurfaceAdmin)).
						Put("/members/{"+tenant.UserParam+"}", members.Put)
					r.With(gate.RequireSurface(models.SurfaceAdmin)).
						Delete("/members/{"+tenant.UserParam+"}", members.Delete)
				})
			})
		})
	})

	r.Get("/healthz", health.New(logger, svc.Checks).ServeHTTP)
	r.Handle("/metrics", svc.Metrics)
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
