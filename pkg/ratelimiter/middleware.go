package ratelimiter

import (
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
)

// maxKeyLength bounds storage key size; longer composite keys are hashed.
const maxKeyLength = 64

// KeyFunc extracts a rate limit key from the request.
type KeyFunc func(r *http.Request) string

// Composite combines multiple key functions into one.
// Long keys (>64 chars) are hashed using FNV-1a.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}

		if len(parts) == 0 {
			return ""
		}
		if len(parts) == 1 && len(parts[0]) <= maxKeyLength {
			return parts[0]
		}

		combined := strings.Join(parts, ":")
		if len(combined) > maxKeyLength {
			h := fnv.New64a()
			h.Write([]byte(combined))
			return strconv.FormatUint(h.Sum64(), 36)
		}
		return combined
	}
}

// Static returns a KeyFunc that always yields key, used to give each route its own bucket.
func Static(key string) KeyFunc {
	return func(*http.Request) string { return key }
}

// MiddlewareOption customizes the responses of Middleware.
type MiddlewareOption func(*middlewareOptions)

type middlewareOptions struct {
	onLimited func(w http.ResponseWriter, r *http.Request, res *Result)
	onError   func(w http.ResponseWriter, r *http.Request, err error)
}

// WithLimitedHandler replaces the default plain-text 429 response.
func WithLimitedHandler(fn func(w http.ResponseWriter, r *http.Request, res *Result)) MiddlewareOption {
	return func(o *middlewareOptions) {
		if fn != nil {
			o.onLimited = fn
		}
	}
}

// WithErrorHandler replaces the default plain-text 500 response on store failures.
func WithErrorHandler(fn func(w http.ResponseWriter, r *http.Request, err error)) MiddlewareOption {
	return func(o *middlewareOptions) {
		if fn != nil {
			o.onError = fn
		}
	}
}

// Middleware consumes one token per request and rejects the request when the bucket is empty.
// Requests whose key resolves to "" are not limited.
func Middleware(tb *Bucket, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := &middlewareOptions{
		onLimited: func(w http.ResponseWriter, _ *http.Request, _ *Result) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		},
		onError: func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		},
	}
	for _, opt := range opts {
		opt(o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := tb.Allow(r.Context(), key)
			if err != nil {
				o.onError(w, r, err)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed() {
				if retryAfter := int(result.RetryAfter().Seconds()); retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				}
				o.onLimited(w, r, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
