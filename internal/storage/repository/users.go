package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/strata-gate/internal/models"
)

const userColumns = `uid, email, name, password_hash, role, is_active, must_reset_password, last_login_at, created_at`

// CreateUser stores a user and returns its id. A taken email yields
// models.ErrAlreadyExists.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	var newID string
	query := `INSERT INTO users (email, name, password_hash, role, is_active, must_reset_password)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING uid`
	if err := s.DB.QueryRowContext(ctx, query,
		models.NormalizeEmail(user.Email), user.Name, user.PasswordHash, string(user.Role),
		user.IsActive, user.MustResetPassword).Scan(&newID); err != nil {
		return "", mapErr(op, err)
	}
	return newID, nil
}

// GetUserByEmail returns the user with the given (normalised) email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, models.NormalizeEmail(email)))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

// GetUser returns the user by id.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

// UpdateLastLogin sets last_login_at, never moving it backwards.
func (s *Storage) UpdateLastLogin(ctx context.Context, userUID string, at time.Time) error {
	const op = "storage.UpdateLastLogin"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE users
			  SET last_login_at = $1
			  WHERE uid = $2 AND (last_login_at IS NULL OR last_login_at < $1)`
	if _, err := s.DB.ExecContext(ctx, query, at.UTC(), userUID); err != nil {
		return mapErr(op, err)
	}
	return nil
}

// SetUserActive enables or disables an account. Users are never deleted.
func (s *Storage) SetUserActive(ctx context.Context, userUID string, active bool) error {
	const op = "storage.SetUserActive"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET is_active = $1 WHERE uid = $2`, active, userUID)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		role      string
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.UUID, &u.Email, &u.Name, &u.PasswordHash, &role,
		&u.IsActive, &u.MustResetPassword, &lastLogin, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.LastLoginAt = timePtr(lastLogin)
	return &u, nil
}
