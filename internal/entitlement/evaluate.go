// Package entitlement decides whether a tenant may use the application at a
// given instant, and applies billing events to a tenant subscription.
//
// Trial expiry is lazy: nothing rewrites a stored "trial" once the end date
// passes, Evaluate derives it from now. Callers must evaluate on every
// request instead of trusting the stored status.
package entitlement

import (
	"time"

	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// Decision is the outcome of one evaluation.
type Decision struct {
	Entitled bool                     `json:"entitled"`
	Reason   models.NotEntitledReason `json:"reason,omitempty"`
}

// Err returns nil for an entitled decision and a *models.NotEntitledError otherwise.
func (d Decision) Err() error {
	if d.Entitled {
		return nil
	}
	reason := d.Reason
	if reason == "" {
		reason = models.ReasonRequiresUpgrade
	}
	return &models.NotEntitledError{Reason: reason}
}

var entitled = Decision{Entitled: true}

func denied(reason models.NotEntitledReason) Decision {
	return Decision{Reason: reason}
}

// Evaluate computes entitlement for sub at now. A nil subscription, an unknown
// status or a trial without an end date are all refusals.
func Evaluate(sub *models.Subscription, now time.Time) Decision {
	if sub == nil {
		return denied(models.ReasonRequiresUpgrade)
	}
	if sub.IsFreeForever {
		return entitled
	}

	switch sub.Status {
	case models.StatusActive:
		return entitled
	case models.StatusTrial:
		if sub.TrialEndDate == nil || sub.TrialEndDate.IsZero() {
			return denied(models.ReasonRequiresUpgrade)
		}
		if now.After(*sub.TrialEndDate) {
			return denied(models.ReasonTrialExpired)
		}
		return entitled
	case models.StatusFree:
		return entitled
	case models.StatusCancelled:
		return denied(models.ReasonSubscriptionCancelled)
	case models.StatusExpired:
		return denied(models.ReasonRequiresUpgrade)
	default:
		return denied(models.ReasonRequiresUpgrade)
	}
}

// IsEntitled is Evaluate reduced to a bool.
func IsEntitled(sub *models.Subscription, now time.Time) bool {
	return Evaluate(sub, now).Entitled
}

// EffectiveStatus is the status as seen at now: a trial past its end date
// reads as expired.
func EffectiveStatus(sub *models.Subscription, now time.Time) models.SubscriptionStatus {
	if sub == nil {
		return models.StatusExpired
	}
	if sub.Status == models.StatusTrial && Evaluate(sub, now).Reason == models.ReasonTrialExpired {
		return models.StatusExpired
	}
	return sub.Status
}
