package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/httpserver"
)

type health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func serveHealth(t *testing.T, h http.Handler) (int, health) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, body
}

func TestLivenessHandler(t *testing.T) {
	t.Parallel()

	code, body := serveHealth(t, httpserver.LivenessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body.Status)
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("connection refused") }

	t.Run("all checks pass", func(t *testing.T) {
		t.Parallel()
		code, body := serveHealth(t, httpserver.ReadinessHandler(nil, time.Second, map[string]httpserver.Check{
			"postgres": ok,
			"redis":    ok,
		}))
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, body.Checks)
	})

	t.Run("one check fails", func(t *testing.T) {
		t.Parallel()
		code, body := serveHealth(t, httpserver.ReadinessHandler(nil, time.Second, map[string]httpserver.Check{
			"postgres": ok,
			"redis":    fail,
		}))
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "not_ready", body.Status)
		assert.Equal(t, "fail", body.Checks["redis"])
		assert.Equal(t, "ok", body.Checks["postgres"])
	})

	t.Run("checks get a deadline", func(t *testing.T) {
		t.Parallel()
		code, _ := serveHealth(t, httpserver.ReadinessHandler(nil, 10*time.Millisecond, map[string]httpserver.Check{
			"slow": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}))
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})
}
