package credential

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/strata-gate/internal/lib/jwt"
	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// Local verifies tokens minted by this service.
type Local struct {
	maker jwt.Maker
}

// NewLocal wraps a token maker.
func NewLocal(maker jwt.Maker) *Local {
	return &Local{maker: maker}
}

// Verify checks the HS256 signature, issuer and expiry.
func (l *Local) Verify(_ context.Context, raw string) (Identity, error) {
	const op = "credential.Local.Verify"
	claims, err := l.maker.ParseToken(raw)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w: %v", op, models.ErrUnauthenticated, err)
	}
	return Identity{
		Subject: claims.UserUID,
		Email:   models.NormalizeEmail(claims.Email),
	}, nil
}
