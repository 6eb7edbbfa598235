// Package ratelimiter throttles requests with a token bucket.
//
// A Bucket holds the refill policy and delegates state to a Store. MemoryStore
// serves a single process; RedisStore runs the same algorithm in a Lua script so
// every replica shares the limit.
//
//	bucket, _ := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
//	    Capacity:       20,
//	    RefillRate:     5,
//	    RefillInterval: time.Minute,
//	})
//	r.With(ratelimiter.Middleware(bucket, ratelimiter.Composite(
//	    ratelimiter.Static("mfa_verify"),
//	    byClientIP,
//	))).Post("/auth/mfa/verify", verify)
//
// A denied request consumes nothing, so a client that keeps hammering an empty
// bucket is admitted again as soon as the next refill lands. The middleware sets
// the X-RateLimit-* headers and Retry-After on 429 responses.
package ratelimiter
