package ratelimiter_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/ratelimiter"
)

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	clock := newFakeClock()
	store := ratelimiter.NewRedisStore(client,
		ratelimiter.WithKeyPrefix("test:ratelimit:"),
		ratelimiter.WithRedisClock(clock.Now),
	)
	ctx := context.Background()
	key := uuid.NewString()
	t.Cleanup(func() { _ = store.Reset(context.Background(), key) })

	for want := 2; want >= 0; want-- {
		remaining, _, err := store.ConsumeTokens(ctx, key, 1, testConfig)
		require.NoError(t, err)
		assert.Equal(t, want, remaining)
	}

	remaining, resetAt, err := store.ConsumeTokens(ctx, key, 1, testConfig)
	require.NoError(t, err)
	assert.Negative(t, remaining)
	assert.Equal(t, clock.Now().Add(time.Minute).UnixMilli(), resetAt.UnixMilli())

	clock.Advance(time.Minute)
	remaining, _, err = store.ConsumeTokens(ctx, key, 1, testConfig)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	require.NoError(t, store.Reset(ctx, key))
	remaining, _, err = store.ConsumeTokens(ctx, key, 0, testConfig)
	require.NoError(t, err)
	assert.Equal(t, testConfig.Capacity, remaining)
}
