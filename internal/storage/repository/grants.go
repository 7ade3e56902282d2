package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// GetGrant returns the grant of a user in a tenant.
func (s *Storage) GetGrant(ctx context.Context, userUID, tenantID string) (*models.TenantAccessGrant, error) {
	const op = "storage.GetGrant"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT user_uid, tenant_id, role, can_post_announcements,
			      special_access, created_at, updated_at
			  FROM tenant_access_grants
			  WHERE user_uid = $1 AND tenant_id = $2`, userUID, tenantID)
	g, err := scanGrant(row)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return g, nil
}

// UpsertGrant creates or replaces the single grant of (user, tenant).
func (s *Storage) UpsertGrant(ctx context.Context, grant models.TenantAccessGrant) error {
	const op = "storage.UpsertGrant"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	if err := upsertGrant(ctx, s.DB, grant); err != nil {
		return mapErr(op, err)
	}
	return nil
}

// DeleteGrant revokes a grant.
func (s *Storage) DeleteGrant(ctx context.Context, userUID, tenantID string) error {
	const op = "storage.DeleteGrant"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM tenant_access_grants WHERE user_uid = $1 AND tenant_id = $2`, userUID, tenantID)
	if err != nil {
		return mapErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ListMemberships returns every tenant the user holds a grant in.
func (s *Storage) ListMemberships(ctx context.Context, userUID string) ([]models.TenantMembership, error) {
	const op = "storage.ListMemberships"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT t.id, t.name, t.created_at,
			      g.user_uid, g.tenant_id, g.role, g.can_post_announcements,
			      g.special_access, g.created_at, g.updated_at
			  FROM tenant_access_grants g
			  JOIN tenants t ON t.id = g.tenant_id
			  WHERE g.user_uid = $1
			  ORDER BY t.name, t.id`, userUID)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.TenantMembership
	for rows.Next() {
		var (
			m       models.TenantMembership
			role    string
			special []byte
		)
		if err := rows.Scan(&m.Tenant.ID, &m.Tenant.Name, &m.Tenant.CreatedAt,
			&m.Grant.UserUID, &m.Grant.TenantID, &role, &m.Grant.CanPostAnnouncements,
			&special, &m.Grant.CreatedAt, &m.Grant.UpdatedAt); err != nil {
			return nil, mapErr(op, err)
		}
		m.Grant.Role = models.Role(role)
		if m.Grant.SpecialAccess, err = decodeSurfaces(special); err != nil {
			return nil, mapErr(op, err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return result, nil
}

func upsertGrant(ctx context.Context, db execer, grant models.TenantAccessGrant) error {
	special, err := encodeSurfaces(grant.SpecialAccess)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO tenant_access_grants (user_uid, tenant_id, role,
			      can_post_announcements, special_access, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $6)
			  ON CONFLICT (user_uid, tenant_id) DO UPDATE
			  SET role = EXCLUDED.role,
			      can_post_announcements = EXCLUDED.can_post_announcements,
			      special_access = EXCLUDED.special_access,
			      updated_at = EXCLUDED.updated_at`,
		grant.UserUID, grant.TenantID, string(grant.Role), grant.CanPostAnnouncements,
		special, grant.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert grant: %w", err)
	}
	return nil
}

func scanGrant(row rowScanner) (*models.TenantAccessGrant, error) {
	var (
		g       models.TenantAccessGrant
		role    string
		special []byte
	)
	if err := row.Scan(&g.UserUID, &g.TenantID, &role, &g.CanPostAnnouncements,
		&special, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.Role = models.Role(role)
	surfaces, err := decodeSurfaces(special)
	if err != nil {
		return nil, err
	}
	g.SpecialAccess = surfaces
	return &g, nil
}

func encodeSurfaces(surfaces []models.Surface) (string, error) {
	if surfaces == nil {
		surfaces = []models.Surface{}
	}
	raw, err := json.Marshal(surfaces)
	if err != nil {
		return "", fmt.Errorf("encode special access: %w", err)
	}
	return string(raw), nil
}

func decodeSurfaces(raw []byte) ([]models.Surface, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var surfaces []models.Surface
	if err := json.Unmarshal(raw, &surfaces); err != nil {
		return nil, fmt.Errorf("decode special access: %w", err)
	}
	return surfaces, nil
}
