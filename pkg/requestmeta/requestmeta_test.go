package requestmeta_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/logger"
	"github.com/dmitrymomot/restauth/pkg/requestmeta"
)

func serve(t *testing.T, cfg requestmeta.Config, req *http.Request) (requestmeta.Info, *httptest.ResponseRecorder) {
	t.Helper()
	var got requestmeta.Info
	h := requestmeta.Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, ok := requestmeta.FromContext(r.Context())
		require.True(t, ok)
		got = info
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return got, rec
}

func TestMiddleware_RequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"generated when absent", "", false},
		{"reused when valid", "test-request-id-123", true},
		{"replaced when invalid", "bad id!", false},
		{"replaced when too long", strings.Repeat("a", 129), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(requestmeta.Header, tt.header)
			}
			info, rec := serve(t, requestmeta.Config{}, req)

			assert.NotEmpty(t, info.RequestID)
			assert.Equal(t, info.RequestID, rec.Header().Get(requestmeta.Header))
			if tt.reuse {
				assert.Equal(t, tt.header, info.RequestID)
			} else {
				assert.NotEqual(t, tt.header, info.RequestID)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		trust   bool
		want    string
	}{
		{"remote addr", nil, "127.0.0.1:8080", false, "127.0.0.1"},
		{"headers ignored when untrusted", map[string]string{"X-Forwarded-For": "198.51.100.178"}, "10.0.0.1:1", false, "10.0.0.1"},
		{"cloudflare first", map[string]string{
			"CF-Connecting-IP": "203.0.113.195",
			"X-Forwarded-For":  "192.168.1.1",
		}, "10.0.0.1:1", true, "203.0.113.195"},
		{"invalid cf falls back", map[string]string{
			"CF-Connecting-IP": "invalid",
			"DO-Connecting-IP": "198.51.100.178",
		}, "10.0.0.1:1", true, "198.51.100.178"},
		{"first valid forwarded", map[string]string{"X-Forwarded-For": "junk, 198.51.100.178, 203.0.113.195"}, "10.0.0.1:1", true, "198.51.100.178"},
		{"real ip", map[string]string{"X-Real-IP": "192.168.1.1"}, "10.0.0.1:1", true, "192.168.1.1"},
		{"ipv6 normalized", map[string]string{"X-Real-IP": "2001:0db8:0000::1"}, "10.0.0.1:1", true, "2001:db8::1"},
		{"ipv6 remote", nil, "[::1]:443", false, "::1"},
		{"garbage remote", nil, "nope", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, requestmeta.ClientIP(req, tt.trust))
		})
	}
}

func TestExtractors(t *testing.T) {
	t.Parallel()

	_, ok := requestmeta.RequestID(context.Background())
	assert.False(t, ok)

	ctx := requestmeta.WithContext(context.Background(), requestmeta.Info{
		RequestID: "req-1",
		IP:        "10.0.0.1",
		UserAgent: "curl/8",
	})

	id, ok := requestmeta.RequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)

	ip, ok := requestmeta.IP(ctx)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.1", ip)

	ua, ok := requestmeta.UserAgent(ctx)
	assert.True(t, ok)
	assert.Equal(t, "curl/8", ua)

	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf), logger.WithContextExtractors(requestmeta.LogExtractors()...))
	log.InfoContext(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "10.0.0.1", entry["ip"])
}
