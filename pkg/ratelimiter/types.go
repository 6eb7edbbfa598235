package ratelimiter

import (
	"context"
	"time"
)

// Result contains the result of a rate limit check.
type Result struct {
	Limit     int       // Maximum tokens (bucket capacity)
	Remaining int       // Tokens remaining; negative when the request was denied
	ResetAt   time.Time // Time of the next refill
}

// Allowed returns whether the request is allowed based on remaining tokens.
func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter returns how long to wait before the next request, or 0 if the request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(time.Until(r.ResetAt), 0)
}

// Config defines the token bucket configuration.
type Config struct {
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"20"`        // Burst limit
	RefillRate     int           `env:"RATE_LIMIT_REFILL_RATE" envDefault:"5"`      // Tokens added per interval
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1m"` // How often tokens are added
	Backend        string        `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`     // memory or redis
}

// Store defines the interface for rate limit storage backends.
type Store interface {
	// ConsumeTokens takes tokens from the bucket at key when enough are available.
	// A negative remaining value means the request is denied and nothing was taken.
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)

	// Reset clears the rate limit state for the given key.
	Reset(ctx context.Context, key string) error
}
