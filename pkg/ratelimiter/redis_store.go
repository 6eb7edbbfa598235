package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript runs the token bucket update atomically on the Redis server.
// State lives in a hash {tokens, last_refill(ms)} that expires once the bucket would be full again.
var consumeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local requested = tonumber(ARGV[5])
local ttl = tonumber(ARGV[6])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil or last == nil then
  tokens = capacity
  last = now
end

local intervals = math.floor((now - last) / interval)
if intervals > 0 then
  local cap = math.floor(capacity / rate) + 1
  if intervals > cap then intervals = cap end
  tokens = math.min(tokens + intervals * rate, capacity)
  last = last + intervals * interval
  if tokens == capacity then last = now end
end

local remaining = tokens - requested
if remaining >= 0 then tokens = remaining end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_refill', last)
redis.call('PEXPIRE', KEYS[1], ttl)
return {remaining, last + interval}
`)

// RedisStore keeps buckets in Redis so limits hold across replicas.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix namespaces bucket keys. Defaults to "ratelimit:".
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisClock overrides the time source sent to the script.
func WithRedisClock(now func() time.Time) RedisStoreOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "ratelimit:",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	interval := config.RefillInterval.Milliseconds()
	if interval <= 0 {
		interval = 1
	}
	ttl := (int64(config.Capacity/config.RefillRate) + 1) * interval

	res, err := consumeScript.Run(ctx, s.client, []string{s.prefix + key},
		config.Capacity,
		config.RefillRate,
		interval,
		s.now().UnixMilli(),
		tokens,
		ttl,
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, err
	}
	if len(res) != 2 {
		return 0, time.Time{}, errors.New("unexpected rate limit script reply")
	}

	return int(res[0]), time.UnixMilli(res[1]), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
