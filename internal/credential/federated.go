package credential

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/strata-gate/internal/lib/jwks"
	"github.com/magabrotheeeer/strata-gate/internal/models"
)

const defaultLeeway = 30 * time.Second

// KeySource resolves the identity provider's signing key for a kid.
type KeySource interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Federated verifies RS256 tokens issued by the external identity provider.
type Federated struct {
	keys     KeySource
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

// NewFederated creates a federated strategy for tokens from issuer
// addressed to audience.
func NewFederated(keys KeySource, issuer, audience string) *Federated {
	return &Federated{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
		leeway:   defaultLeeway,
		now:      time.Now,
	}
}

type federatedClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	gojwt.RegisteredClaims
}

// Verify checks signature, issuer, audience and expiry, then the email claims.
func (f *Federated) Verify(ctx context.Context, raw string) (Identity, error) {
	const op = "credential.Federated.Verify"

	parser := gojwt.NewParser(
		gojwt.WithValidMethods([]string{gojwt.SigningMethodRS256.Alg()}),
		gojwt.WithIssuer(f.issuer),
		gojwt.WithAudience(f.audience),
		gojwt.WithExpirationRequired(),
		gojwt.WithLeeway(f.leeway),
		gojwt.WithTimeFunc(f.now),
	)

	var keyErr error
	claims := &federatedClaims{}
	_, err := parser.ParseWithClaims(raw, claims, func(t *gojwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, err := f.keys.Key(ctx, kid)
		if err != nil {
			keyErr = err
			return nil, err
		}
		return key, nil
	})
	if err != nil {
		if errors.Is(keyErr, jwks.ErrFetch) {
			return Identity{}, fmt.Errorf("%s: %w: %v", op, models.ErrUnavailable, keyErr)
		}
		return Identity{}, fmt.Errorf("%s: %w: %v", op, models.ErrUnauthenticated, err)
	}

	if claims.Subject == "" || claims.Email == "" {
		return Identity{}, fmt.Errorf("%s: missing subject or email: %w", op, models.ErrUnauthenticated)
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return Identity{}, fmt.Errorf("%s: email not verified: %w", op, models.ErrUnauthenticated)
	}

	return Identity{
		Subject: claims.Subject,
		Email:   models.NormalizeEmail(claims.Email),
		Name:    claims.Name,
	}, nil
}

func isUnavailable(err error) bool {
	return errors.Is(err, models.ErrUnavailable)
}
