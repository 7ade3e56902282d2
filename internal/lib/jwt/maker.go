// Package jwt issues and verifies the locally signed session tokens handed out
// at login and signup.
//
// Maker is the contract; MakerImpl signs HS256 tokens with a shared secret and
// a fixed validity window.
package jwt

import (
	"time"
)

// DefaultTokenTTL is the validity window of a local token.
const DefaultTokenTTL = 7 * 24 * time.Hour

// DefaultIssuer is used when the configuration does not set one.
const DefaultIssuer = "strata-gate"

// Maker describes issuing and parsing local tokens.
type Maker interface {
	// GenerateToken returns a signed token for the user.
	GenerateToken(userUID, email string) (string, error)
	// ParseToken verifies signature, issuer and expiry and returns the claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl implements Maker with a shared secret.
type MakerImpl struct {
	secretKey string        // HMAC key.
	tokenTTL  time.Duration // Validity window.
	issuer    string
	now       func() time.Time
}

// NewJWTMaker creates a maker. A zero ttl falls back to DefaultTokenTTL.
func NewJWTMaker(secretKey string, ttl time.Duration, issuer string) *MakerImpl {
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		issuer:    issuer,
		now:       time.Now,
	}
}

// Issuer returns the iss claim written into every token.
func (j *MakerImpl) Issuer() string {
	return j.issuer
}
