// Package scheduler publishes reminders for trials that are about to end. It
// never changes a subscription: trial expiry is evaluated lazily.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
	"github.com/magabrotheeeer/strata-gate/internal/models"
	"github.com/magabrotheeeer/strata-gate/internal/rabbitmq"
)

// TrialRepository finds trials by end date.
type TrialRepository interface {
	ListTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Subscription, error)
}

// Publisher sends notification messages.
type Publisher interface {
	Publish(ctx context.Context, routingKey, messageID string, message any) error
}

// Observer counts published reminders.
type Observer interface {
	TrialReminderPublished()
}

// Reminder is the message consumed by the notification sender.
type Reminder struct {
	TenantID     string    `json:"tenant_id"`
	TrialEndDate time.Time `json:"trial_end_date"`
	DaysLeft     int       `json:"days_left"`
}

// Scheduler runs the reminder job on a cron spec.
type Scheduler struct {
	repo     TrialRepository
	pub      Publisher
	observer Observer
	window   time.Duration
	timeout  time.Duration
	log      *slog.Logger
	now      func() time.Time
	cron     *cron.Cron
}

// New creates a Scheduler looking window ahead. observer may be nil.
func New(repo TrialRepository, pub Publisher, window time.Duration, observer Observer, log *slog.Logger) *Scheduler {
	return &Scheduler{
		repo:     repo,
		pub:      pub,
		observer: observer,
		window:   window,
		timeout:  time.Minute,
		log:      log,
		now:      time.Now,
		cron:     cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start schedules the job with spec and starts the cron runner.
func (s *Scheduler) Start(spec string) error {
	const op = "scheduler.Start"
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Error("trial reminder run failed", sl.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.cron.Start()
	s.log.Info("scheduler started", slog.String("spec", spec), slog.Duration("window", s.window))
	return nil
}

// Stop stops the runner and waits for a running job to finish or ctx to
// end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce publishes one reminder per trial ending within the window and
// returns how many were published. A failed publish does not stop the run.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	const op = "scheduler.RunOnce"
	log := s.log.With(slog.String("op", op))

	now := s.now().UTC()
	trials, err := s.repo.ListTrialsEndingBetween(ctx, now, now.Add(s.window))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(trials) == 0 {
		log.Info("no trials ending soon")
		return 0, nil
	}

	published := 0
	for _, sub := range trials {
		if sub.TrialEndDate == nil {
			continue
		}
		reminder := Reminder{
			TenantID:     sub.TenantID,
			TrialEndDate: sub.TrialEndDate.UTC(),
			DaysLeft:     daysLeft(now, *sub.TrialEndDate),
		}
		// One message per tenant and day, so a rerun on the same day is
		// deduplicated downstream.
		id := fmt.Sprintf("trial-expiring:%s:%s", sub.TenantID, now.Format(time.DateOnly))
		if err := s.pub.Publish(ctx, rabbitmq.RouteTrialExpiring, id, reminder); err != nil {
			log.Error("failed to publish reminder", sl.Tenant(sub.TenantID), sl.Err(err))
			continue
		}
		published++
		if s.observer != nil {
			s.observer.TrialReminderPublished()
		}
	}
	log.Info("trial reminders published", slog.Int("count", published), slog.Int("found", len(trials)))
	return published, nil
}

func daysLeft(now, end time.Time) int {
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}
