// Package storetest is a conformance suite for mfa.Store implementations.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/mfa"
)

// Run exercises store against the mfa.Store contract. Every case uses fresh
// user IDs, so store may be shared and need not be empty.
func Run(t *testing.T, store mfa.Store) {
	t.Helper()

	t.Run("get missing", func(t *testing.T) { testGetMissing(t, store) })
	t.Run("insert and get", func(t *testing.T) { testInsertGet(t, store) })
	t.Run("insert conflict", func(t *testing.T) { testInsertConflict(t, store) })
	t.Run("upsert replaces", func(t *testing.T) { testUpsert(t, store) })
	t.Run("touch", func(t *testing.T) { testTouch(t, store) })
	t.Run("consume recovery code", func(t *testing.T) { testConsume(t, store) })
	t.Run("concurrent consume", func(t *testing.T) { testConcurrentConsume(t, store) })
	t.Run("delete", func(t *testing.T) { testDelete(t, store) })
}

// at is truncated to milliseconds, the coarsest precision of the backends.
func at() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func totpRecord(userID, secret string) *mfa.Authenticator {
	return &mfa.Authenticator{
		UserID:    userID,
		Type:      mfa.FactorTOTP,
		Data:      mfa.Data{Secret: secret},
		CreatedAt: at(),
	}
}

func recoveryRecord(userID, seed string) *mfa.Authenticator {
	return &mfa.Authenticator{
		UserID:    userID,
		Type:      mfa.FactorRecoveryCodes,
		Data:      mfa.Data{Seed: seed},
		CreatedAt: at(),
	}
}

func testGetMissing(t *testing.T, store mfa.Store) {
	_, err := store.Get(context.Background(), uuid.NewString(), mfa.FactorTOTP)
	assert.ErrorIs(t, err, mfa.ErrAuthenticatorNotFound)
}

func testInsertGet(t *testing.T, store mfa.Store) {
	ctx := context.Background()
	userID := uuid.NewString()
	rec := totpRecord(userID, "JBSWY3DPEHPK3PXP")

	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.Get(ctx, userID, mfa.FactorTOTP)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, mfa.FactorTOTP, got.Type)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", got.Data.Secret)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Millisecond)
	assert.Nil(t, got.LastUsedAt)

	_, err = store.Get(ctx, userID, mfa.FactorRecoveryCodes)
	assert.ErrorIs(t, err, mfa.ErrAuthenticatorNotFound)
}

func testInsertConflict(t *testing.T, store mfa.Store) {
	ctx := context.Background()
	userID := uuid.NewString()

	require.NoError(t, store.Insert(ctx, totpRecord(userID, "AAAA")))
	assert.ErrorIs(t, store.Insert(ctx, totpRecord(userID, "BBBB")), mfa.ErrAuthenticatorExists)
	require.NoError(t, store.Insert(ctx, recoveryRecord(userID, "aa")))

	got, err := store.Get(ctx, userID, mfa.FactorTOTP)
	require.NoError(t, err)
	assert.Equal(t, "AAAA", got.Data.Secret)
}

func testUpsert(t *testing.T, store mfa.Store) {
	ctx := context.Background()
	userID := uuid.NewString()

	require.NoError(t, store.Upsert(ctx, recoveryRecord(userID, "aa")))
	ok, err := store.ConsumeRecoveryCode(ctx, userID, "aa", 0, at())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Upsert(ctx, recoveryRecord(userID, "bb")))
	got, err := store.Get(ctx, userID, mfa.FactorRecoveryCodes)
	require.NoError(t, err)
	assert.Equal(t, "bb", got.Data.Seed)
	assert.Zero(t, got.Data.UsedMask)
	assert.Nil(t, got.LastUsedAt)
}

func testTouch(t *testing.T, store mfa.Store) {
	ctx := context.Background()
	userID := uuid.NewString()
	when := at()

	assert.ErrorIs(t, store.Touch(ctx, userID, mfa.FactorTOTP, when), mfa.ErrAuthenticatorNotFound)

	require.NoError(t, store.Insert(ctx, totpRecord(userID, "AAAA")))
	require.NoError(t, store.Touch(ctx, userID, mfa.FactorTOTP, when))

	got, err := store.Get(ctx, userID, mfa.FactorTOTP)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.WithinDuration(t, when, *got.LastUsedAt, time.Millisecond)
	assert.Equal(t, "AAAA", got.Data.Secret)
}

func testConsume(t *testing.T, store mfa.Store) {
	ctx := context.Background()
	userID := uuid.NewString()
	when := at()

	ok, err := store.ConsumeRecoveryCode(ctx, userID, "aa", 0, when)
	require.NoError(t, err)
	assert.False(t, ok, "missing record")

	require.NoError(t, store.Insert(ctx, recoveryRecord(userID, "aa")))

	for _, index := range []int{0, 5, 62} {
		ok, err := store.ConsumeRecoveryCode(ctx, userID, "aa", index, when)
		require.NoError(t, err)
		assert.True(t, ok, "index %d", index)
	}

	ok, err = store.ConsumeRecoveryCode(ctx, userID, "aa", 5, when)
	require.NoError(t, err)
	assert.False(t, ok, "already used")

	ok, err = store.ConsumeRecoveryCode(ctx, userID, "bb", 1, when)
	require.NoError(t, err)
	assert.False(t, ok, "seed changed")

	got, err := store.Get(ctx, userID, mfa.FactorRecoveryCodes)
	require.NoError(t, err)
	assert.Equal(t, int64(1|1<<5|1<<62), got.Data.UsedMask)
	require.NotNil(t, got.LastUsedAt)
	assert.WithinDuration(t, when, *got.LastUsedAt, time.Millisecond)
}

func testConcurrentConsume(t *testing.T, store mfa.Store) {
	ctx := context.Background()
	userID := uuid.NewString()
	require.NoError(t, store.Insert(ctx, recoveryRecord(userID, "aa")))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.ConsumeRecoveryCode(ctx, userID, "aa", 3, at())
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func testDelete(t *testing.T, store mfa.Store) {
	ctx := context.Background()
	userID := uuid.NewString()
	other := uuid.NewString()

	require.NoError(t, store.Insert(ctx, totpRecord(userID, "AAAA")))
	require.NoError(t, store.Insert(ctx, recoveryRecord(userID, "aa")))
	require.NoError(t, store.Insert(ctx, totpRecord(other, "BBBB")))

	require.NoError(t, store.Delete(ctx, userID, mfa.FactorTOTP, mfa.FactorRecoveryCodes))
	for _, typ := range mfa.AllFactors {
		_, err := store.Get(ctx, userID, typ)
		assert.ErrorIs(t, err, mfa.ErrAuthenticatorNotFound)
	}

	_, err := store.Get(ctx, other, mfa.FactorTOTP)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, other))
	_, err = store.Get(ctx, other, mfa.FactorTOTP)
	assert.ErrorIs(t, err, mfa.ErrAuthenticatorNotFound)

	require.NoError(t, store.Delete(ctx, uuid.NewString()), "deleting nothing is fine")
}
