package credential

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList remembers revoked token IDs (jti) until the token would have
// expired anyway.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocationList is a RevocationList for a single process. Expired
// entries are dropped on write.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList returns an empty list.
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, tokenID string, until time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, exp := range l.entries {
		if !exp.After(now) {
			delete(l.entries, id)
		}
	}
	if until.After(now) {
		l.entries[tokenID] = until
	}
	return nil
}

func (l *MemoryRevocationList) Revoked(_ context.Context, tokenID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	exp, ok := l.entries[tokenID]
	return ok && exp.After(l.now()), nil
}

// RedisRevocationList shares revocations between replicas. Entries expire
// with the token they revoke.
type RedisRevocationList struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRevocationList stores entries under prefix, "auth:revoked:" when empty.
func NewRedisRevocationList(client redis.UniversalClient, prefix string) *RedisRevocationList {
	if prefix == "" {
		prefix = "auth:revoked:"
	}
	return &RedisRevocationList{client: client, prefix: prefix}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return l.client.Set(ctx, l.prefix+tokenID, 1, ttl).Err()
}

func (l *RedisRevocationList) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
