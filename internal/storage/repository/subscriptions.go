package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/strata-gate/internal/models"
)

const subscriptionColumns = `tenant_id, status, tier, monthly_rate_cents, trial_start_date, trial_end_date,
			      subscription_start, subscription_end, is_free_forever, updated_at`

// GetSubscription returns the subscription of a tenant. It is always read
// from the database.
func (s *Storage) GetSubscription(ctx context.Context, tenantID string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+subscriptionColumns+`
			  FROM subscriptions WHERE tenant_id = $1`, tenantID)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return sub, nil
}

// ListTrialsEndingBetween returns trial subscriptions whose trial ends in
// (from, to].
func (s *Storage) ListTrialsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Subscription, error) {
	const op = "storage.ListTrialsEndingBetween"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+subscriptionColumns+`
			  FROM subscriptions
			  WHERE status = 'trial' AND is_free_forever = FALSE
			    AND trial_end_date > $1 AND trial_end_date <= $2
			  ORDER BY trial_end_date`, from.UTC(), to.UTC())
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, mapErr(op, err)
		}
		result = append(result, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return result, nil
}

// SubscriptionMutation computes the next state of a subscription.
type SubscriptionMutation func(current models.Subscription) (models.Subscription, error)

// ApplyBillingEvent locks the tenant's subscription, runs mutate and stores
// the result. Each eventID is applied at most once; a replay returns
// applied=false without calling mutate.
func (s *Storage) ApplyBillingEvent(ctx context.Context, eventID, eventType, tenantID string, mutate SubscriptionMutation) (applied bool, err error) {
	const op = "storage.ApplyBillingEvent"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, mapErr(op, err)
	}
	defer func() {
		if err != nil || !applied {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO processed_billing_events (event_id, tenant_id, event_type)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (event_id) DO NOTHING`, eventID, tenantID, eventType)
	if err != nil {
		return false, mapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, mapErr(op, err)
	}
	if n == 0 {
		return false, nil
	}

	row := tx.QueryRowContext(ctx, `SELECT `+subscriptionColumns+`
			  FROM subscriptions WHERE tenant_id = $1 FOR UPDATE`, tenantID)
	current, err := scanSubscription(row)
	if err != nil {
		return false, mapErr(op, err)
	}

	next, err := mutate(*current)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE subscriptions
			  SET status = $1, tier = $2, monthly_rate_cents = $3,
			      trial_start_date = $4, trial_end_date = $5,
			      subscription_start = $6, subscription_end = $7,
			      is_free_forever = $8, updated_at = $9
			  WHERE tenant_id = $10`,
		string(next.Status), next.Tier, next.MonthlyRateCents,
		next.TrialStartDate, next.TrialEndDate,
		next.SubscriptionStart, next.SubscriptionEnd,
		next.IsFreeForever, next.UpdatedAt.UTC(), tenantID); err != nil {
		return false, mapErr(op, err)
	}

	if err = tx.Commit(); err != nil {
		return false, mapErr(op, err)
	}
	return true, nil
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	var (
		sub                                    models.Subscription
		status                                 string
		trialStart, trialEnd, subStart, subEnd sql.NullTime
	)
	if err := row.Scan(&sub.TenantID, &status, &sub.Tier, &sub.MonthlyRateCents,
		&trialStart, &trialEnd, &subStart, &subEnd, &sub.IsFreeForever, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	sub.Status = models.SubscriptionStatus(status)
	sub.TrialStartDate = timePtr(trialStart)
	sub.TrialEndDate = timePtr(trialEnd)
	sub.SubscriptionStart = timePtr(subStart)
	sub.SubscriptionEnd = timePtr(subEnd)
	return &sub, nil
}
