// Package password hashes and checks local passwords with bcrypt.
package password

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// GetHash returns the bcrypt hash of password.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash returns nil when externalPassword matches originalHash.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("strata-gate-dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

// CompareDummy spends the same time as a failed CompareHash. Login calls it
// when no user matches, so unknown emails cannot be told apart by timing.
func CompareDummy(externalPassword string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(externalPassword))
}
