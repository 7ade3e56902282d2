package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/magabrotheeeer/strata-gate/internal/app/worker"
	"github.com/magabrotheeeer/strata-gate/internal/config"
	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", sl.Err(err))
	}
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env)

	logger.Info("starting billing-worker", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := worker.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize worker", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("billing-worker stopped gracefully")
}
