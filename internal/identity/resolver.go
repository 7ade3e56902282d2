// Package identity maps a verified credential to the internal user record.
//
// The configured super-administrator email is recognised before any storage
// access and resolves to a synthetic principal. Everyone else is looked up
// by email.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/strata-gate/internal/credential"
	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// SuperAdminID is the user id of the synthetic super-administrator.
const SuperAdminID = "super-admin"

// UserProvider loads users by email.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// LoginTracker records a successful local sign-in. It must not block.
type LoginTracker interface {
	Track(userID string)
}

// Resolver resolves identities to principals.
type Resolver struct {
	users           UserProvider
	superAdminEmail string
	tracker         LoginTracker
	log             *slog.Logger
}

// NewResolver creates a resolver. An empty superAdminEmail disables the
// bypass. tracker may be nil.
func NewResolver(users UserProvider, superAdminEmail string, tracker LoginTracker, log *slog.Logger) *Resolver {
	return &Resolver{
		users:           users,
		superAdminEmail: models.NormalizeEmail(superAdminEmail),
		tracker:         tracker,
		log:             log,
	}
}

// IsSuperAdmin reports whether email belongs to the super-administrator.
func (r *Resolver) IsSuperAdmin(email string) bool {
	return r.superAdminEmail != "" && models.NormalizeEmail(email) == r.superAdminEmail
}

// Resolve returns the principal for a verified identity.
func (r *Resolver) Resolve(ctx context.Context, id credential.Identity) (models.Principal, error) {
	const op = "identity.Resolve"

	if r.IsSuperAdmin(id.Email) {
		return models.Principal{
			UserID:     SuperAdminID,
			Email:      r.superAdminEmail,
			Name:       "Super Administrator",
			GlobalRole: models.RoleAdministrator,
			SuperAdmin: true,
			Scheme:     id.Scheme,
		}, nil
	}

	user, err := r.users.GetUserByEmail(ctx, models.NormalizeEmail(id.Email))
	switch {
	case errors.Is(err, models.ErrNotFound):
		return models.Principal{}, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	case err != nil:
		return models.Principal{}, fmt.Errorf("%s: %w: %v", op, models.ErrUnavailable, err)
	case user == nil:
		return models.Principal{}, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	if !user.IsActive {
		r.log.Info("disabled account rejected", slog.String("user_id", user.UUID))
		return models.Principal{}, fmt.Errorf("%s: %w", op, models.ErrAccountDisabled)
	}

	if id.Scheme == credential.SchemeLocal && r.tracker != nil {
		r.tracker.Track(user.UUID)
	}

	return models.Principal{
		UserID:     user.UUID,
		Email:      user.Email,
		Name:       user.Name,
		GlobalRole: user.Role,
		Scheme:     id.Scheme,
	}, nil
}
