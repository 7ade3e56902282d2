// Package account registers local users, logs them in with a password and
// toggles their active flag.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/strata-gate/internal/lib/jwt"
	"github.com/magabrotheeeer/strata-gate/internal/lib/password"
	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// UserRepository is the user storage the service needs.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetUserActive(ctx context.Context, userUID string, active bool) error
}

// Session is what a successful signup or login returns.
type Session struct {
	Token             string      `json:"token"`
	UserID            string      `json:"user_id"`
	Email             string      `json:"email"`
	Name              string      `json:"name"`
	Role              models.Role `json:"role"`
	MustResetPassword bool        `json:"must_reset_password"`
}

// Service implements local accounts.
type Service struct {
	users           UserRepository
	maker           jwt.Maker
	superAdminEmail string
	log             *slog.Logger
}

// New creates a Service. superAdminEmail can never be registered locally.
func New(users UserRepository, maker jwt.Maker, superAdminEmail string, log *slog.Logger) *Service {
	return &Service{
		users:           users,
		maker:           maker,
		superAdminEmail: models.NormalizeEmail(superAdminEmail),
		log:             log,
	}
}

// Register creates an active resident and returns a session for it. The
// reserved super-administrator email is refused exactly like a taken one,
// after the same hashing work.
func (s *Service) Register(ctx context.Context, email, name, rawPassword string) (Session, error) {
	const op = "account.Register"

	email = models.NormalizeEmail(email)
	hash, err := password.GetHash(rawPassword)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if s.superAdminEmail != "" && email == s.superAdminEmail {
		return Session{}, fmt.Errorf("%s: %w", op, models.ErrAlreadyExists)
	}

	user := models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         models.RoleResident,
		IsActive:     true,
	}
	id, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	user.UUID = id

	s.log.Info("user registered", sl.User(id))
	return s.session(op, user)
}

// Login checks the password of email. An unknown email, a user without a
// local password and a wrong password all return ErrUnauthenticated after a
// bcrypt comparison.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (Session, error) {
	const op = "account.Login"

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(email))
	switch {
	case errors.Is(err, models.ErrNotFound):
		password.CompareDummy(rawPassword)
		return Session{}, fmt.Errorf("%s: %w", op, models.ErrUnauthenticated)
	case err != nil:
		return Session{}, fmt.Errorf("%s: %w: %w", op, models.ErrUnavailable, err)
	}

	if user.PasswordHash == "" {
		password.CompareDummy(rawPassword)
		return Session{}, fmt.Errorf("%s: %w", op, models.ErrUnauthenticated)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, models.ErrUnauthenticated)
	}
	if !user.IsActive {
		return Session{}, fmt.Errorf("%s: %w", op, models.ErrAccountDisabled)
	}

	return s.session(op, *user)
}

// SetActive enables or disables a user. Disabled users fail identity
// resolution on their next request.
func (s *Service) SetActive(ctx context.Context, userID string, active bool) error {
	const op = "account.SetActive"

	if err := s.users.SetUserActive(ctx, userID, active); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user active flag changed", sl.User(userID), slog.Bool("active", active))
	return nil
}

func (s *Service) session(op string, user models.User) (Session, error) {
	token, err := s.maker.GenerateToken(user.UUID, user.Email)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return Session{
		Token:             token,
		UserID:            user.UUID,
		Email:             user.Email,
		Name:              user.Name,
		Role:              user.Role,
		MustResetPassword: user.MustResetPassword,
	}, nil
}
