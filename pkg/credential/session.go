package credential

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/restauth/pkg/token"
)

const sessionPurpose = "session"

type sessionPayload struct {
	UserID string `json:"uid"`
}

// CookieSessions is a stateless signed session cookie.
type CookieSessions struct {
	signer *token.Signer
	name   string
	ttl    time.Duration
	secure bool
}

// NewCookieSessions signs session cookies with secret. Name and lifetime come
// from cfg.
func NewCookieSessions(secret []byte, cfg Config, opts ...token.Option) (*CookieSessions, error) {
	signer, err := token.NewSigner(secret, sessionPurpose, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	name := cfg.SessionCookieName
	if name == "" {
		name = "sessionid"
	}
	return &CookieSessions{signer: signer, name: name, ttl: cfg.SessionTTL, secure: cfg.CookieSecure}, nil
}

// Start sets the session cookie for userID.
func (s *CookieSessions) Start(w http.ResponseWriter, userID string) error {
	value, err := token.Sign(s.signer, sessionPayload{UserID: userID})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *CookieSessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Authenticate resolves the session cookie.
func (s *CookieSessions) Authenticate(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.name)
	if err != nil || cookie.Value == "" {
		return "", ErrUnauthenticated
	}
	payload, err := token.Verify[sessionPayload](s.signer, cookie.Value, s.ttl)
	if err != nil || payload.UserID == "" {
		return "", ErrUnauthenticated
	}
	return payload.UserID, nil
}
