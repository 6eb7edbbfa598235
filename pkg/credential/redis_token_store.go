package credential

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore keeps API keys in Redis so every replica can resolve them.
// Keys never expire; Delete revokes them.
type RedisTokenStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisTokenStore stores keys under prefix.
func NewRedisTokenStore(client redis.UniversalClient, prefix string) *RedisTokenStore {
	if prefix == "" {
		prefix = "auth:"
	}
	return &RedisTokenStore{client: client, prefix: prefix}
}

func (s *RedisTokenStore) userKey(userID string) string { return s.prefix + "user:" + userID }
func (s *RedisTokenStore) tokenKey(key string) string   { return s.prefix + "token:" + key }

func (s *RedisTokenStore) GetOrCreate(ctx context.Context, userID, newKey string) (string, error) {
	created, err := s.client.SetNX(ctx, s.userKey(userID), newKey, 0).Result()
	if err != nil {
		return "", err
	}
	if !created {
		// Another login won the race or the user already had a key.
		return s.client.Get(ctx, s.userKey(userID)).Result()
	}

	if err := s.client.Set(ctx, s.tokenKey(newKey), userID, 0).Err(); err != nil {
		_ = s.client.Del(ctx, s.userKey(userID)).Err()
		return "", err
	}
	return newKey, nil
}

func (s *RedisTokenStore) Lookup(ctx context.Context, key string) (string, error) {
	userID, err := s.client.Get(ctx, s.tokenKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	return userID, err
}

func (s *RedisTokenStore) Delete(ctx context.Context, userID string) error {
	key, err := s.client.Get(ctx, s.userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.userKey(userID), s.tokenKey(key))
		return nil
	})
	return err
}
