package ratelimiter_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/ratelimiter"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	bucket, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0)), testConfig)
	require.NoError(t, err)

	h := ratelimiter.Middleware(bucket, ratelimiter.Static("route"))(okHandler())

	for i := range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(2-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestMiddleware_EmptyKeySkipsLimit(t *testing.T) {
	t.Parallel()

	bucket, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0)), testConfig)
	require.NoError(t, err)

	h := ratelimiter.Middleware(bucket, func(*http.Request) string { return "" })(okHandler())
	for range 10 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestMiddleware_CustomHandlers(t *testing.T) {
	t.Parallel()

	t.Run("limited", func(t *testing.T) {
		t.Parallel()
		bucket, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0)),
			ratelimiter.Config{Capacity: 1, RefillRate: 1, RefillInterval: testConfig.RefillInterval})
		require.NoError(t, err)

		h := ratelimiter.Middleware(bucket, ratelimiter.Static("k"),
			ratelimiter.WithLimitedHandler(func(w http.ResponseWriter, _ *http.Request, res *ratelimiter.Result) {
				w.WriteHeader(http.StatusTeapot)
			}),
		)(okHandler())

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		bucket, err := ratelimiter.NewBucket(failingStore{}, testConfig)
		require.NoError(t, err)

		var got error
		h := ratelimiter.Middleware(bucket, ratelimiter.Static("k"),
			ratelimiter.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
				got = err
				w.WriteHeader(http.StatusServiceUnavailable)
			}),
		)(okHandler())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.ErrorIs(t, got, ratelimiter.ErrStoreUnavailable)
	})
}

func TestComposite(t *testing.T) {
	t.Parallel()

	header := func(name string) ratelimiter.KeyFunc {
		return func(r *http.Request) string { return r.Header.Get(name) }
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-A", "alpha")
	req.Header.Set("X-B", "beta")

	assert.Equal(t, "route:alpha:beta", ratelimiter.Composite(ratelimiter.Static("route"), header("X-A"), header("X-B"))(req))
	assert.Equal(t, "alpha", ratelimiter.Composite(header("X-Missing"), header("X-A"))(req))
	assert.Empty(t, ratelimiter.Composite(header("X-Missing"))(req))

	long := ratelimiter.Composite(ratelimiter.Static(strings.Repeat("x", 80)), header("X-A"))(req)
	assert.LessOrEqual(t, len(long), 64)
	assert.NotContains(t, long, ":")
}
