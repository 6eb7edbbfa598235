package mfa_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/mfa"
	"github.com/dmitrymomot/restauth/pkg/mfa/storetest"
)

func recoveryRecord(userID, seed string) *mfa.Authenticator {
	return &mfa.Authenticator{
		UserID:    userID,
		Type:      mfa.FactorRecoveryCodes,
		Data:      mfa.Data{Seed: seed},
		CreatedAt: time.Now().UTC(),
	}
}

func TestMemoryStore_InsertGetUpsert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := mfa.NewMemoryStore()

	_, err := s.Get(ctx, "u1", mfa.FactorTOTP)
	assert.ErrorIs(t, err, mfa.ErrAuthenticatorNotFound)

	a := &mfa.Authenticator{UserID: "u1", Type: mfa.FactorTOTP, Data: mfa.Data{Secret: "AAAA"}}
	require.NoError(t, s.Insert(ctx, a))
	assert.ErrorIs(t, s.Insert(ctx, a), mfa.ErrAuthenticatorExists)

	// The same user may hold one record per type.
	require.NoError(t, s.Insert(ctx, recoveryRecord("u1", "aa")))
	assert.Equal(t, 2, s.Len())

	got, err := s.Get(ctx, "u1", mfa.FactorTOTP)
	require.NoError(t, err)
	assert.Equal(t, "AAAA", got.Data.Secret)

	got.Data.Secret = "mutated"
	again, err := s.Get(ctx, "u1", mfa.FactorTOTP)
	require.NoError(t, err)
	assert.Equal(t, "AAAA", again.Data.Secret, "returned records are copies")

	require.NoError(t, s.Upsert(ctx, &mfa.Authenticator{UserID: "u1", Type: mfa.FactorTOTP, Data: mfa.Data{Secret: "BBBB"}}))
	got, err = s.Get(ctx, "u1", mfa.FactorTOTP)
	require.NoError(t, err)
	assert.Equal(t, "BBBB", got.Data.Secret)
}

func TestMemoryStore_Touch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := mfa.NewMemoryStore()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.ErrorIs(t, s.Touch(ctx, "u1", mfa.FactorTOTP, at), mfa.ErrAuthenticatorNotFound)

	require.NoError(t, s.Insert(ctx, &mfa.Authenticator{UserID: "u1", Type: mfa.FactorTOTP}))
	require.NoError(t, s.Touch(ctx, "u1", mfa.FactorTOTP, at))

	got, err := s.Get(ctx, "u1", mfa.FactorTOTP)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.Equal(t, at, *got.LastUsedAt)
}

func TestMemoryStore_ConsumeRecoveryCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	at := time.Now().UTC()

	t.Run("sets the bit once", func(t *testing.T) {
		t.Parallel()

		s := mfa.NewMemoryStore()
		require.NoError(t, s.Insert(ctx, recoveryRecord("u1", "aa")))

		ok, err := s.ConsumeRecoveryCode(ctx, "u1", "aa", 3, at)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.ConsumeRecoveryCode(ctx, "u1", "aa", 3, at)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := s.Get(ctx, "u1", mfa.FactorRecoveryCodes)
		require.NoError(t, err)
		assert.Equal(t, int64(1<<3), got.Data.UsedMask)
		require.NotNil(t, got.LastUsedAt)
	})

	t.Run("rejects a replaced seed", func(t *testing.T) {
		t.Parallel()

		s := mfa.NewMemoryStore()
		require.NoError(t, s.Insert(ctx, recoveryRecord("u1", "bb")))

		ok, err := s.ConsumeRecoveryCode(ctx, "u1", "aa", 0, at)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing record", func(t *testing.T) {
		t.Parallel()

		ok, err := mfa.NewMemoryStore().ConsumeRecoveryCode(ctx, "u1", "aa", 0, at)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent consumers of one code", func(t *testing.T) {
		t.Parallel()

		s := mfa.NewMemoryStore()
		require.NoError(t, s.Insert(ctx, recoveryRecord("u1", "aa")))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := s.ConsumeRecoveryCode(ctx, "u1", "aa", 7, at); ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})
}

func TestMemoryStore_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := mfa.NewMemoryStore()
	require.NoError(t, s.Insert(ctx, &mfa.Authenticator{UserID: "u1", Type: mfa.FactorTOTP}))
	require.NoError(t, s.Insert(ctx, recoveryRecord("u1", "aa")))
	require.NoError(t, s.Insert(ctx, &mfa.Authenticator{UserID: "u2", Type: mfa.FactorTOTP}))

	require.NoError(t, s.Delete(ctx, "u1", mfa.FactorTOTP))
	_, err := s.Get(ctx, "u1", mfa.FactorTOTP)
	assert.ErrorIs(t, err, mfa.ErrAuthenticatorNotFound)
	_, err = s.Get(ctx, "u1", mfa.FactorRecoveryCodes)
	assert.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "u1"))
	assert.Equal(t, 1, s.Len())
	require.NoError(t, s.Delete(ctx, "nobody"))
}

func TestMemoryStore_Conformance(t *testing.T) {
	t.Parallel()
	storetest.Run(t, mfa.NewMemoryStore())
}
