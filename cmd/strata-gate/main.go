// Package main Strata Gate API
//
// @title           Strata Gate API
// @version         1.0
// @description     Authentication, tenant access and subscription gating for strata management.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	stratagate "github.com/magabrotheeeer/strata-gate/internal/app/strata-gate"
	"github.com/magabrotheeeer/strata-gate/internal/config"
	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", sl.Err(err))
	}
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env)

	logger.Info("starting strata-gate", slog.String("env", cfg.Env))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := stratagate.New(ctx, cfg, logger, "./migrations")
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("strata-gate stopped gracefully")
}
