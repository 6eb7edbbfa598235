package mfa

import (
	"context"
	"errors"
	"math/bits"
	"time"

	"github.com/dmitrymomot/restauth/pkg/totp"
)

// RecoveryCodes derives single-use codes from a stored seed and tracks
// consumption in a bit mask.
type RecoveryCodes struct {
	store Store
	count int
	now   func() time.Time
}

// NewRecoveryCodes builds the recovery code factor over store.
func NewRecoveryCodes(cfg Config, store Store, opts ...Option) *RecoveryCodes {
	o := newOptions(opts)
	return &RecoveryCodes{store: store, count: cfg.RecoveryCodeCount, now: o.now}
}

// Activate replaces the user's set with a fresh one and returns the codes.
// This is the only time the plaintext codes are returned in bulk.
func (r *RecoveryCodes) Activate(ctx context.Context, userID string) ([]string, error) {
	seed, err := totp.GenerateRecoverySeed()
	if err != nil {
		return nil, err
	}
	codes, err := totp.DeriveRecoveryCodes(seed, r.count)
	if err != nil {
		return nil, err
	}

	err = r.store.Upsert(ctx, &Authenticator{
		UserID:    userID,
		Type:      FactorRecoveryCodes,
		Data:      Data{Seed: seed},
		CreatedAt: r.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// UnusedCodes returns the codes not consumed yet, in index order.
func (r *RecoveryCodes) UnusedCodes(ctx context.Context, userID string) ([]string, error) {
	a, err := r.store.Get(ctx, userID, FactorRecoveryCodes)
	if errors.Is(err, ErrAuthenticatorNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	codes, err := totp.DeriveRecoveryCodes(a.Data.Seed, r.count)
	if err != nil {
		return nil, err
	}
	return totp.UnusedRecoveryCodes(codes, a.Data.UsedMask), nil
}

// Validate consumes code if it is an unused code of the user.
func (r *RecoveryCodes) Validate(ctx context.Context, userID, code string) (bool, error) {
	_, ok, err := r.Redeem(ctx, userID, code)
	return ok, err
}

// Redeem is Validate that also reports how many codes remain afterwards.
func (r *RecoveryCodes) Redeem(ctx context.Context, userID, code string) (int, bool, error) {
	code = totp.NormalizeRecoveryCode(code)
	if !totp.RecoveryCodePattern.MatchString(code) {
		return 0, false, nil
	}

	a, err := r.store.Get(ctx, userID, FactorRecoveryCodes)
	if errors.Is(err, ErrAuthenticatorNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	codes, err := totp.DeriveRecoveryCodes(a.Data.Seed, r.count)
	if err != nil {
		return 0, false, err
	}
	index := totp.MatchRecoveryCode(codes, code, a.Data.UsedMask)
	if index < 0 {
		return 0, false, nil
	}

	ok, err := r.store.ConsumeRecoveryCode(ctx, userID, a.Data.Seed, index, r.now().UTC())
	if err != nil || !ok {
		return 0, false, err
	}
	return r.remaining(totp.MarkRecoveryCodeUsed(a.Data.UsedMask, index)), true, nil
}

// Deactivate removes the recovery code set.
func (r *RecoveryCodes) Deactivate(ctx context.Context, userID string) error {
	return r.store.Delete(ctx, userID, FactorRecoveryCodes)
}

func (r *RecoveryCodes) remaining(mask int64) int {
	inRange := uint64(mask) & (uint64(1)<<uint(r.count) - 1)
	return r.count - bits.OnesCount64(inRange)
}
