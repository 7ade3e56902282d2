// Package credential verifies bearer credentials issued by either the local
// login flow or the federated identity provider and yields the caller's
// identity. Claims are only read after a strategy has checked the signature.
package credential

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
	"github.com/magabrotheeeer/strata-gate/internal/models"
)

const (
	SchemeLocal     = "local"
	SchemeFederated = "federated"
)

// Identity is what a verified credential proves about its bearer.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Scheme  string
}

// Strategy verifies one credential scheme.
type Strategy interface {
	Verify(ctx context.Context, raw string) (Identity, error)
}

// Observer is notified about every verification outcome.
type Observer interface {
	CredentialVerified(scheme, outcome string)
}

// Verifier picks a strategy from the credential's JOSE header.
type Verifier struct {
	local     Strategy
	federated Strategy
	observer  Observer
	log       *slog.Logger
}

// NewVerifier builds a verifier. federated may be nil when no identity
// provider is configured, in which case federated credentials are rejected.
func NewVerifier(local, federated Strategy, observer Observer, log *slog.Logger) *Verifier {
	return &Verifier{
		local:     local,
		federated: federated,
		observer:  observer,
		log:       log,
	}
}

type joseHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	Typ string `json:"typ"`
}

// Verify validates raw and returns the identity it carries.
func (v *Verifier) Verify(ctx context.Context, raw string) (Identity, error) {
	const op = "credential.Verify"

	raw = strings.TrimSpace(raw)
	if raw == "" {
		v.observe("none", "missing")
		return Identity{}, fmt.Errorf("%s: missing credential: %w", op, models.ErrUnauthenticated)
	}

	header, err := decodeHeader(raw)
	if err != nil {
		v.observe("none", "malformed")
		return Identity{}, fmt.Errorf("%s: %w: %v", op, models.ErrUnauthenticated, err)
	}

	strategy, scheme := v.pick(header)
	if strategy == nil {
		v.observe("none", "unsupported")
		return Identity{}, fmt.Errorf("%s: unsupported credential alg %q: %w", op, header.Alg, models.ErrUnauthenticated)
	}

	identity, err := strategy.Verify(ctx, raw)
	if err != nil {
		outcome := "rejected"
		if isUnavailable(err) {
			outcome = "unavailable"
			v.log.Warn("credential verification unavailable", slog.String("scheme", scheme), sl.Err(err))
		}
		v.observe(scheme, outcome)
		return Identity{}, fmt.Errorf("%s: %w", op, err)
	}
	identity.Scheme = scheme
	v.observe(scheme, "ok")
	return identity, nil
}

func (v *Verifier) pick(h joseHeader) (Strategy, string) {
	switch {
	case h.Alg == "HS256":
		return v.local, SchemeLocal
	case h.Alg == "RS256" && h.Kid != "" && v.federated != nil:
		return v.federated, SchemeFederated
	default:
		return nil, ""
	}
}

func (v *Verifier) observe(scheme, outcome string) {
	if v.observer != nil {
		v.observer.CredentialVerified(scheme, outcome)
	}
}

// decodeHeader reads only the first segment. It never looks at the payload.
func decodeHeader(raw string) (joseHeader, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return joseHeader{}, fmt.Errorf("token has %d segments", len(parts))
	}
	seg, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[0], "="))
	if err != nil {
		return joseHeader{}, fmt.Errorf("decode header: %w", err)
	}
	var h joseHeader
	if err := json.Unmarshal(seg, &h); err != nil {
		return joseHeader{}, fmt.Errorf("parse header: %w", err)
	}
	return h, nil
}
