// Package stratagate wires the gate HTTP API and its gRPC health endpoint.
package stratagate

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/strata-gate/internal/cache"
	"github.com/magabrotheeeer/strata-gate/internal/config"
	"github.com/magabrotheeeer/strata-gate/internal/credential"
	grpcserver "github.com/magabrotheeeer/strata-gate/internal/grpc/server"
	"github.com/magabrotheeeer/strata-gate/internal/http/handlers/health"
	"github.com/magabrotheeeer/strata-gate/internal/http/middlewarectx"
	"github.com/magabrotheeeer/strata-gate/internal/identity"
	"github.com/magabrotheeeer/strata-gate/internal/lib/jwks"
	"github.com/magabrotheeeer/strata-gate/internal/lib/jwt"
	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
	"github.com/magabrotheeeer/strata-gate/internal/metrics"
	"github.com/magabrotheeeer/strata-gate/internal/migrations"
	"github.com/magabrotheeeer/strata-gate/internal/services/account"
	"github.com/magabrotheeeer/strata-gate/internal/services/tenancy"
	"github.com/magabrotheeeer/strata-gate/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App is the running gate service.
type App struct {
	server   *http.Server
	health   *grpcserver.HealthServer
	grpcAddr string
	logger   *slog.Logger
	db       *repository.Storage
	cache    *cache.Cache
}

// New connects storage and cache, applies migrations and builds the router.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrationsPath string) (*App, error) {
	const op = "app.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, migrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	maker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL, cfg.JWTToken.Issuer)
	var federated credential.Strategy
	if cfg.Federated.Enabled() {
		keys := jwks.New(cfg.JWKSURL,
			jwks.WithRefreshInterval(cfg.Federated.RefreshInterval),
			jwks.WithFetchTimeout(cfg.FetchTimeout),
			jwks.WithMinRefreshGap(cfg.MinRefreshGap),
			jwks.WithLogger(logger),
			jwks.WithRefreshHook(m.JWKSRefreshed),
		)
		if err := keys.Prefetch(ctx); err != nil {
			logger.Warn("identity provider keys not loaded yet", slog.String("op", op), sl.Err(err))
		}
		federated = credential.NewFederated(keys, cfg.Federated.Issuer, cfg.Federated.Audience)
	}
	verifier := credential.NewVerifier(credential.NewLocal(maker), federated, m, logger)

	tracker := identity.NewLastLoginRecorder(db, cacheRedis, cfg.LastLoginDebounce, cache.LastLoginKey, logger)
	resolver := identity.NewResolver(db, cfg.SuperAdminEmail, tracker, logger)

	tenancyService := tenancy.New(db, cacheRedis, cfg.TenantCacheTTL, cfg.TrialDays, logger)
	accountService := account.New(db, maker, cfg.SuperAdminEmail, logger)

	gate := middlewarectx.NewGate(verifier, resolver, tenancyService, tenancyService, m, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.HTTPServer, Services{
		Gate:    gate,
		Account: accountService,
		Tenancy: tenancyService,
		Checks: map[string]health.Check{
			"postgres": db.Ready,
			"redis":    cacheRedis.Ping,
		},
		Metrics: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      otelhttp.NewHandler(router, "strata-gate"),
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		health:   grpcserver.NewHealthServer(30*time.Second, logger, db.Ready, cacheRedis.Ping),
		grpcAddr: cfg.AddressGRPC,
		logger:   logger,
		db:       db,
		cache:    cacheRedis,
	}, nil
}

// Run serves HTTP and gRPC until ctx is cancelled, then shuts both down.
func (a *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.grpcAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return a.health.Serve(gctx, lis)
	})

	g.Go(func() error {
		<-gctx.Done()
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	})

	err = g.Wait()
	if cerr := a.cache.Close(); cerr != nil {
		a.logger.Error("failed to close redis", sl.Err(cerr))
	}
	if cerr := a.db.Close(); cerr != nil {
		a.logger.Error("failed to close database", sl.Err(cerr))
	}
	return err
}
