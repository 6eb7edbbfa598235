package requestmeta

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/restauth/pkg/logger"
)

const (
	// Header carries the request correlation id in both directions.
	Header = "X-Request-ID"

	maxIDLength        = 128
	maxUserAgentLength = 512
)

var validIDRegex = regexp.MustCompile("^[a-zA-Z0-9_-]+$")

// Info is the per-request metadata attached to the context.
type Info struct {
	RequestID string
	IP        string
	UserAgent string
}

// Config controls which client address headers are trusted.
type Config struct {
	// TrustProxyHeaders enables CF-Connecting-IP, DO-Connecting-IP, X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `env:"HTTP_TRUST_PROXY_HEADERS" envDefault:"false"`
}

type contextKey struct{}

func WithContext(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

func FromContext(ctx context.Context) (Info, bool) {
	if ctx == nil {
		return Info{}, false
	}
	info, ok := ctx.Value(contextKey{}).(Info)
	return info, ok
}

// Middleware resolves the request id, client IP and user agent and stores them in the context.
// A valid client-supplied X-Request-ID is reused, otherwise a UUID is generated; the id is echoed back.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(Header)
			if !isValidRequestID(id) {
				id = uuid.New().String()
			}
			w.Header().Set(Header, id)

			ua := r.UserAgent()
			if len(ua) > maxUserAgentLength {
				ua = ua[:maxUserAgentLength]
			}

			info := Info{
				RequestID: id,
				IP:        ClientIP(r, cfg.TrustProxyHeaders),
				UserAgent: ua,
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), info)))
		})
	}
}

// ClientIP returns the normalized client address. Proxy headers are consulted only when trusted.
func ClientIP(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		for _, h := range []string{"CF-Connecting-IP", "DO-Connecting-IP"} {
			if ip := parseIP(r.Header.Get(h)); ip != "" {
				return ip
			}
		}
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			for ip := range strings.SplitSeq(forwarded, ",") {
				if parsed := parseIP(ip); parsed != "" {
					return parsed
				}
			}
		}
		if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}

func isValidRequestID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	return validIDRegex.MatchString(id)
}

// RequestID, IP and UserAgent have the shape of audit context extractors.

func RequestID(ctx context.Context) (string, bool) {
	info, ok := FromContext(ctx)
	return info.RequestID, ok && info.RequestID != ""
}

func IP(ctx context.Context) (string, bool) {
	info, ok := FromContext(ctx)
	return info.IP, ok && info.IP != ""
}

func UserAgent(ctx context.Context) (string, bool) {
	info, ok := FromContext(ctx)
	return info.UserAgent, ok && info.UserAgent != ""
}

// LogExtractors adds request_id and ip to every log record written with the request context.
func LogExtractors() []logger.ContextExtractor {
	return []logger.ContextExtractor{
		func(ctx context.Context) (slog.Attr, bool) {
			id, ok := RequestID(ctx)
			return logger.RequestID(id), ok
		},
		func(ctx context.Context) (slog.Attr, bool) {
			ip, ok := IP(ctx)
			return logger.IP(ip), ok
		},
	}
}
