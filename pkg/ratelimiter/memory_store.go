package ratelimiter

import (
	"context"
	"sync"
	"time"
)

// bucket represents a token bucket state.
type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time // Used by cleanup to identify stale buckets
}

// MemoryStore implements Store interface using in-memory storage.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]*bucket

	cleanupInterval time.Duration
	staleAfter      time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
	now             func() time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets the cleanup interval for removing stale buckets.
// Set to 0 to disable automatic cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates a new in-memory store with optional cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:         make(map[string]*bucket),
		cleanupInterval: 5 * time.Minute,
		staleAfter:      time.Hour,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}

	return ms
}

// ConsumeTokens refills the bucket for the elapsed intervals, then takes tokens if enough are left.
func (ms *MemoryStore) ConsumeTokens(_ context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	b, exists := ms.buckets[key]
	if !exists {
		b = &bucket{
			tokens:     config.Capacity,
			lastRefill: now,
		}
		ms.buckets[key] = b
	}

	// Capped so a long idle period cannot overflow the multiplication.
	maxIntervals := int64(config.Capacity/config.RefillRate + 1)
	intervals := int(min(int64(now.Sub(b.lastRefill)/config.RefillInterval), maxIntervals))
	if intervals > 0 {
		b.tokens = min(b.tokens+intervals*config.RefillRate, config.Capacity)
		b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * config.RefillInterval)
		if b.tokens == config.Capacity {
			b.lastRefill = now
		}
	}
	b.lastAccess = now

	remaining = b.tokens - tokens
	if remaining >= 0 {
		b.tokens = remaining
	}

	return remaining, b.lastRefill.Add(config.RefillInterval), nil
}

func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.buckets, key)
	return nil
}

// cleanup runs periodically to remove stale buckets.
func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeStale()
		case <-ms.stopCleanup:
			return
		}
	}
}

func (ms *MemoryStore) removeStale() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	for key, b := range ms.buckets {
		if now.Sub(b.lastAccess) > ms.staleAfter {
			delete(ms.buckets, key)
		}
	}
}

// Len returns the number of tracked buckets.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.buckets)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (ms *MemoryStore) Close() {
	ms.closeOnce.Do(func() { close(ms.stopCleanup) })
}
