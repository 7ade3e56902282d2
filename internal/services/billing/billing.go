// Package billing applies billing events from the payment provider to tenant
// subscriptions. Each event id is applied at most once.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/strata-gate/internal/entitlement"
	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
	"github.com/magabrotheeeer/strata-gate/internal/models"
	"github.com/magabrotheeeer/strata-gate/internal/rabbitmq"
	"github.com/magabrotheeeer/strata-gate/internal/storage/repository"
)

// Results reported to the observer.
const (
	ResultApplied   = "applied"
	ResultDuplicate = "duplicate"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

// Message is one billing event as it arrives on the queue.
type Message struct {
	EventID          string                `json:"event_id" validate:"required,max=128"`
	Type             entitlement.EventType `json:"type" validate:"required,oneof=payment_succeeded subscription_cancelled subscription_expired free_granted free_forever_granted"`
	TenantID         string                `json:"tenant_id" validate:"required,uuid"`
	OccurredAt       time.Time             `json:"occurred_at"`
	Tier             string                `json:"tier,omitempty" validate:"max=64"`
	MonthlyRateCents int64                 `json:"monthly_rate_cents,omitempty" validate:"gte=0"`
	PeriodEnd        *time.Time            `json:"period_end,omitempty"`
}

// Event converts m to the entitlement event.
func (m Message) Event() entitlement.Event {
	return entitlement.Event{
		Type:             m.Type,
		TenantID:         m.TenantID,
		OccurredAt:       m.OccurredAt,
		Tier:             m.Tier,
		MonthlyRateCents: m.MonthlyRateCents,
		PeriodEnd:        m.PeriodEnd,
	}
}

// Repository persists billing events.
type Repository interface {
	ApplyBillingEvent(ctx context.Context, eventID, eventType, tenantID string, mutate repository.SubscriptionMutation) (bool, error)
}

// Observer counts processed events.
type Observer interface {
	BillingEvent(eventType, result string)
}

// Processor handles billing messages.
type Processor struct {
	repo     Repository
	observer Observer
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

// NewProcessor creates a Processor. observer may be nil.
func NewProcessor(repo Repository, observer Observer, log *slog.Logger) *Processor {
	return &Processor{
		repo:     repo,
		observer: observer,
		validate: validator.New(),
		log:      log,
		now:      time.Now,
	}
}

// Handle decodes, validates and applies one message. Errors that
// redelivery cannot fix wrap rabbitmq.ErrPermanent.
func (p *Processor) Handle(ctx context.Context, body []byte) error {
	const op = "billing.Handle"

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		p.observe("unknown", ResultRejected)
		return fmt.Errorf("%s: decode: %w: %w", op, rabbitmq.ErrPermanent, err)
	}
	if err := p.validate.Struct(msg); err != nil {
		p.observe(string(msg.Type), ResultRejected)
		return fmt.Errorf("%s: validate: %w: %w", op, rabbitmq.ErrPermanent, err)
	}

	log := p.log.With(
		slog.String("op", op),
		slog.String("event_id", msg.EventID),
		slog.String("type", string(msg.Type)),
		sl.Tenant(msg.TenantID),
	)

	ev := msg.Event()
	applied, err := p.repo.ApplyBillingEvent(ctx, msg.EventID, string(msg.Type), msg.TenantID,
		func(current models.Subscription) (models.Subscription, error) {
			return entitlement.Apply(current, ev, p.now())
		})
	switch {
	case err == nil:
	case errors.Is(err, entitlement.ErrInvalidTransition),
		errors.Is(err, entitlement.ErrUnknownEvent),
		errors.Is(err, models.ErrNotFound):
		log.Warn("billing event rejected", sl.Err(err))
		p.observe(string(msg.Type), ResultRejected)
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrPermanent, err)
	default:
		p.observe(string(msg.Type), ResultFailed)
		return fmt.Errorf("%s: %w", op, err)
	}

	if !applied {
		log.Info("billing event already applied")
		p.observe(string(msg.Type), ResultDuplicate)
		return nil
	}
	log.Info("billing event applied")
	p.observe(string(msg.Type), ResultApplied)
	return nil
}

func (p *Processor) observe(eventType, result string) {
	if p.observer != nil {
		p.observer.BillingEvent(eventType, result)
	}
}
