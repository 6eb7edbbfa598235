package credential

import (
	"context"
	"fmt"
	"time"
)

// Mode selects which credential a successful login produces.
type Mode string

const (
	ModeJWT     Mode = "jwt"
	ModeToken   Mode = "token"
	ModeSession Mode = "session"
)

// Result is the credential handed to a client after login. It is one of
// JWTPair, OpaqueToken or SessionOnly.
type Result interface {
	isResult()
}

// JWTPair is an access/refresh token pair. Expirations are set only when
// the configuration asks for them to be returned.
type JWTPair struct {
	Access            string
	Refresh           string
	AccessExpiration  *time.Time
	RefreshExpiration *time.Time
}

// OpaqueToken is a long-lived API key looked up on every request.
type OpaqueToken struct {
	Key string
}

// SessionOnly means the only credential is the session cookie.
type SessionOnly struct{}

func (JWTPair) isResult()     {}
func (OpaqueToken) isResult() {}
func (SessionOnly) isResult() {}

// Issuer produces credentials for an authenticated user.
type Issuer interface {
	Issue(ctx context.Context, userID string) (Result, error)
}

// Config selects the credential mode, loaded from AUTH_* variables.
type Config struct {
	Mode              Mode          `env:"AUTH_MODE" envDefault:"token"`
	SessionLogin      bool          `env:"AUTH_SESSION_LOGIN" envDefault:"false"`
	SessionCookieName string        `env:"AUTH_SESSION_COOKIE" envDefault:"sessionid"`
	SessionTTL        time.Duration `env:"AUTH_SESSION_TTL" envDefault:"336h"`
	CookieSecure      bool          `env:"AUTH_COOKIE_SECURE" envDefault:"true"`
	TokenStore        string        `env:"AUTH_TOKEN_STORE" envDefault:"memory"` // memory or redis; backs API keys or the jwt revocation list
}

// Validate is called by config.Load.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeJWT, ModeToken, ModeSession:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	switch c.TokenStore {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("%w: unknown token store %q", ErrInvalidConfig, c.TokenStore)
	}
	if c.usesSessions() && c.SessionTTL <= 0 {
		return fmt.Errorf("%w: session ttl must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c Config) usesSessions() bool {
	return c.Mode == ModeSession || c.SessionLogin
}

// JWTConfig configures JWT issuance, loaded from JWT_* variables.
type JWTConfig struct {
	SigningKey       string        `env:"JWT_SIGNING_KEY"`
	Issuer           string        `env:"JWT_ISSUER" envDefault:"restauth"`
	Audience         string        `env:"JWT_AUDIENCE"`
	AccessTTL        time.Duration `env:"JWT_ACCESS_TTL" envDefault:"5m"`
	RefreshTTL       time.Duration `env:"JWT_REFRESH_TTL" envDefault:"24h"`
	ReturnExpiration bool          `env:"JWT_AUTH_RETURN_EXPIRATION" envDefault:"false"`
	HTTPOnly         bool          `env:"JWT_AUTH_HTTPONLY" envDefault:"false"`
	AccessCookie     string        `env:"JWT_AUTH_COOKIE" envDefault:"jwt-auth"`
	RefreshCookie    string        `env:"JWT_AUTH_REFRESH_COOKIE" envDefault:"jwt-refresh-token"`
}
