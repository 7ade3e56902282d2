// Package models contains the domain types shared by the gating core: users,
// tenants, access grants, subscriptions and the error taxonomy every layer
// returns to the HTTP gate.
package models

import (
	"errors"
	"fmt"
)

// Error taxonomy. Lower layers wrap these; only the HTTP gate maps them to
// status codes.
var (
	// ErrUnauthenticated means no credential, or one that failed verification.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrAccountDisabled means the identity resolved to an inactive user.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrNotEntitled means the tenant subscription does not allow access right now.
	ErrNotEntitled = errors.New("not entitled")
	// ErrInsufficientCapability means the caller's surfaces do not cover the request.
	ErrInsufficientCapability = errors.New("insufficient capability")
	// ErrNotFound means the tenant or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable means a dependency (storage, key fetch) failed transiently.
	ErrUnavailable = errors.New("unavailable")
	// ErrAlreadyExists is returned by storage on unique violations.
	ErrAlreadyExists = errors.New("already exists")
)

// NotEntitledReason is the machine-readable subtype of ErrNotEntitled.
type NotEntitledReason string

const (
	ReasonTrialExpired          NotEntitledReason = "trialExpired"
	ReasonSubscriptionCancelled NotEntitledReason = "subscriptionCancelled"
	ReasonRequiresUpgrade       NotEntitledReason = "requiresUpgrade"
)

// NotEntitledError carries the reason a tenant was refused.
type NotEntitledError struct {
	Reason NotEntitledReason
}

func (e *NotEntitledError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotEntitled, e.Reason)
}

// Is reports ErrNotEntitled so callers can match without knowing the reason.
func (e *NotEntitledError) Is(target error) bool {
	return target == ErrNotEntitled
}
