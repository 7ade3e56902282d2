package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// CreateTenant provisions a tenant together with its subscription and the
// founding grant in one transaction. A nil grant provisions the tenant
// without members.
func (s *Storage) CreateTenant(ctx context.Context, tenant models.Tenant, sub models.Subscription, grant *models.TenantAccessGrant) (err error) {
	const op = "storage.CreateTenant"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return mapErr(op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO tenants (id, name, created_at) VALUES ($1, $2, $3)`,
		tenant.ID, tenant.Name, tenant.CreatedAt.UTC()); err != nil {
		return mapErr(op, err)
	}
	if err = insertSubscription(ctx, tx, sub); err != nil {
		return mapErr(op, err)
	}
	if grant != nil {
		if err = upsertGrant(ctx, tx, *grant); err != nil {
			return mapErr(op, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return mapErr(op, err)
	}
	return nil
}

// GetTenant returns a tenant by id.
func (s *Storage) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	const op = "storage.GetTenant"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var t models.Tenant
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tenants WHERE id = $1`, tenantID).
		Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return &t, nil
}

// ListTenants returns every tenant ordered by name.
func (s *Storage) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	const op = "storage.ListTenants"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, created_at FROM tenants ORDER BY name, id`)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Tenant
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, mapErr(op, err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return result, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSubscription(ctx context.Context, db execer, sub models.Subscription) error {
	_, err := db.ExecContext(ctx, `INSERT INTO subscriptions (tenant_id, status, tier, monthly_rate_cents,
			      trial_start_date, trial_end_date, subscription_start, subscription_end,
			      is_free_forever, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sub.TenantID, string(sub.Status), sub.Tier, sub.MonthlyRateCents,
		sub.TrialStartDate, sub.TrialEndDate, sub.SubscriptionStart, sub.SubscriptionEnd,
		sub.IsFreeForever, sub.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}
