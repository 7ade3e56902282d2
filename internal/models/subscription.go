package models

import "time"

// SubscriptionStatus is the stored billing state of a tenant.
type SubscriptionStatus string

const (
	StatusTrial     SubscriptionStatus = "trial"
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
	StatusFree      SubscriptionStatus = "free"
)

// SubscriptionStatuses is the closed set of known statuses.
var SubscriptionStatuses = []SubscriptionStatus{
	StatusTrial,
	StatusActive,
	StatusCancelled,
	StatusExpired,
	StatusFree,
}

// DefaultTrialDays is the trial window given to a freshly provisioned tenant.
const DefaultTrialDays = 30

// Subscription is the billing record of one tenant. It is written by billing
// events and administrative action only and is never deleted.
type Subscription struct {
	TenantID          string             `json:"tenant_id"`
	Status            SubscriptionStatus `json:"status"`
	Tier              string             `json:"tier"`
	MonthlyRateCents  int64              `json:"monthly_rate_cents"`
	TrialStartDate    *time.Time         `json:"trial_start_date,omitempty"`
	TrialEndDate      *time.Time         `json:"trial_end_date,omitempty"`
	SubscriptionStart *time.Time         `json:"subscription_start,omitempty"`
	SubscriptionEnd   *time.Time         `json:"subscription_end,omitempty"`
	IsFreeForever     bool               `json:"is_free_forever"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewTrialSubscription returns the subscription created with a tenant.
func NewTrialSubscription(tenantID string, now time.Time, trialDays int) Subscription {
	if trialDays <= 0 {
		trialDays = DefaultTrialDays
	}
	start := now.UTC()
	end := start.AddDate(0, 0, trialDays)
	return Subscription{
		TenantID:       tenantID,
		Status:         StatusTrial,
		Tier:           "standard",
		TrialStartDate: &start,
		TrialEndDate:   &end,
		UpdatedAt:      start,
	}
}
