// Package worker runs the billing event consumer and the trial reminder job.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/strata-gate/internal/config"
	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
	"github.com/magabrotheeeer/strata-gate/internal/metrics"
	"github.com/magabrotheeeer/strata-gate/internal/rabbitmq"
	"github.com/magabrotheeeer/strata-gate/internal/services/billing"
	"github.com/magabrotheeeer/strata-gate/internal/services/scheduler"
	"github.com/magabrotheeeer/strata-gate/internal/storage/repository"
)

// App is the running worker.
type App struct {
	cfg       *config.Config
	conn      *amqp.Connection
	consumeCh *amqp.Channel
	publishCh *amqp.Channel
	db        *repository.Storage
	processor *billing.Processor
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage, retries int, delay time.Duration) error {
	var err error
	for range retries {
		if err = db.Ready(ctx); err == nil {
			return nil
		}
		time.Sleep(delay)
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// New connects to the broker and the database.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.ConnectRetries, cfg.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	consumeCh, err := rabbitmq.SetupChannel(conn, rabbitmq.Queues(cfg.BillingQueue, cfg.NotificationQueue))
	if err != nil {
		closeResources(logger, conn)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	publishCh, err := conn.Channel()
	if err != nil {
		closeResources(logger, consumeCh, conn)
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		closeResources(logger, publishCh, consumeCh, conn)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err := waitForDB(ctx, db, cfg.ConnectRetries, cfg.RetryDelay); err != nil {
		closeResources(logger, db, publishCh, consumeCh, conn)
		return nil, err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	return &App{
		cfg:       cfg,
		conn:      conn,
		consumeCh: consumeCh,
		publishCh: publishCh,
		db:        db,
		processor: billing.NewProcessor(db, m, logger),
		scheduler: scheduler.New(db, rabbitmq.NewPublisher(publishCh), cfg.ReminderWindow, m, logger),
		logger:    logger,
	}, nil
}

// Run consumes billing events and runs the reminder job until ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	defer closeResources(a.logger, a.db, a.publishCh, a.consumeCh, a.conn)

	if err := a.scheduler.Start(a.cfg.Scheduler.Spec); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("consuming billing events", slog.String("queue", a.cfg.BillingQueue))
		return rabbitmq.Consume(gctx, a.consumeCh, a.cfg.BillingQueue, a.processor.Handle, a.logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.scheduler.Stop(stopCtx)
		return nil
	})
	return g.Wait()
}

type closer interface {
	Close() error
}

func closeResources(logger *slog.Logger, resources ...closer) {
	for _, r := range resources {
		if err := r.Close(); err != nil {
			logger.Error("failed to close resource", slog.String("type", fmt.Sprintf("%T", r)), sl.Err(err))
		}
	}
}
