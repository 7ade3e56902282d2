package entitlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// EventType is a billing event understood by Apply.
type EventType string

const (
	EventPaymentSucceeded      EventType = "payment_succeeded"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventSubscriptionExpired   EventType = "subscription_expired"
	EventFreeGranted           EventType = "free_granted"
	EventFreeForeverGranted    EventType = "free_forever_granted"
)

var (
	// ErrInvalidTransition is returned when the event does not apply to the current status.
	ErrInvalidTransition = errors.New("invalid subscription transition")
	// ErrUnknownEvent is returned for event types Apply does not know.
	ErrUnknownEvent = errors.New("unknown billing event")
)

// Event is a billing state change produced by the payment provider or an administrator.
type Event struct {
	Type             EventType  `json:"type"`
	TenantID         string     `json:"tenant_id"`
	OccurredAt       time.Time  `json:"occurred_at"`
	Tier             string     `json:"tier,omitempty"`
	MonthlyRateCents int64      `json:"monthly_rate_cents,omitempty"`
	PeriodEnd        *time.Time `json:"period_end,omitempty"`
}

// Apply returns sub after ev. sub itself is not modified.
func Apply(sub models.Subscription, ev Event, now time.Time) (models.Subscription, error) {
	const op = "entitlement.Apply"

	next := sub
	next.UpdatedAt = now.UTC()

	switch ev.Type {
	case EventPaymentSucceeded:
		switch sub.Status {
		case models.StatusTrial, models.StatusCancelled, models.StatusExpired:
			start := eventTime(ev, now)
			next.SubscriptionStart = &start
		case models.StatusActive:
		default:
			return sub, fmt.Errorf("%s: %w: %s on %s", op, ErrInvalidTransition, ev.Type, sub.Status)
		}
		next.Status = models.StatusActive
		if ev.PeriodEnd != nil {
			end := ev.PeriodEnd.UTC()
			next.SubscriptionEnd = &end
		}
		if ev.Tier != "" {
			next.Tier = ev.Tier
		}
		if ev.MonthlyRateCents > 0 {
			next.MonthlyRateCents = ev.MonthlyRateCents
		}
	case EventSubscriptionCancelled:
		if sub.Status != models.StatusActive {
			return sub, fmt.Errorf("%s: %w: %s on %s", op, ErrInvalidTransition, ev.Type, sub.Status)
		}
		next.Status = models.StatusCancelled
	case EventSubscriptionExpired:
		switch sub.Status {
		case models.StatusActive, models.StatusCancelled, models.StatusTrial:
		default:
			return sub, fmt.Errorf("%s: %w: %s on %s", op, ErrInvalidTransition, ev.Type, sub.Status)
		}
		next.Status = models.StatusExpired
		end := eventTime(ev, now)
		next.SubscriptionEnd = &end
	case EventFreeGranted:
		next.Status = models.StatusFree
	case EventFreeForeverGranted:
		next.IsFreeForever = true
	default:
		return sub, fmt.Errorf("%s: %w: %q", op, ErrUnknownEvent, ev.Type)
	}
	return next, nil
}

func eventTime(ev Event, now time.Time) time.Time {
	if ev.OccurredAt.IsZero() {
		return now.UTC()
	}
	return ev.OccurredAt.UTC()
}
