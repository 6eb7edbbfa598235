package mfa

import (
	"context"
	"time"
)

// Store persists authenticators. Implementations must enforce uniqueness of
// (user, type) and make ConsumeRecoveryCode a single atomic conditional write.
type Store interface {
	// Get returns ErrAuthenticatorNotFound when no record exists.
	Get(ctx context.Context, userID string, t FactorType) (*Authenticator, error)
	// Insert returns ErrAuthenticatorExists on a (user, type) conflict.
	Insert(ctx context.Context, a *Authenticator) error
	// Upsert replaces the record wholesale.
	Upsert(ctx context.Context, a *Authenticator) error
	// Touch sets last_used_at. Returns ErrAuthenticatorNotFound when missing.
	Touch(ctx context.Context, userID string, t FactorType, at time.Time) error
	// ConsumeRecoveryCode sets bit index of the used mask and last_used_at,
	// but only if the record still has seed and the bit is clear.
	// It reports false, with a nil error, when nothing was written.
	ConsumeRecoveryCode(ctx context.Context, userID, seed string, index int, at time.Time) (bool, error)
	// Delete removes the given factor types of the user in one operation.
	// With no types every factor of the user is removed.
	Delete(ctx context.Context, userID string, types ...FactorType) error
}

// AllFactors lists every factor type.
var AllFactors = []FactorType{FactorTOTP, FactorRecoveryCodes}

// FactorsOrAll returns types, or AllFactors when types is empty.
func FactorsOrAll(types []FactorType) []FactorType {
	if len(types) == 0 {
		return AllFactors
	}
	return types
}
