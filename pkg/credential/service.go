package credential

import (
	"context"
	"errors"
	"net/http"
)

// Service picks the issuer for the configured mode and delivers the result
// over HTTP (cookies, session).
type Service struct {
	cfg      Config
	jwt      *JWTIssuer
	opaque   *OpaqueIssuer
	sessions *CookieSessions
}

// Option registers a credential backend with the Service.
type Option func(*Service)

func WithJWT(i *JWTIssuer) Option {
	return func(s *Service) { s.jwt = i }
}

func WithOpaque(i *OpaqueIssuer) Option {
	return func(s *Service) { s.opaque = i }
}

func WithSessions(c *CookieSessions) Option {
	return func(s *Service) { s.sessions = c }
}

// New checks that the backends cfg needs are registered.
func New(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case cfg.Mode == ModeJWT && s.jwt == nil:
		return nil, errors.Join(ErrMissingIssuer, errors.New("jwt"))
	case cfg.Mode == ModeToken && s.opaque == nil:
		return nil, errors.Join(ErrMissingIssuer, errors.New("token"))
	case cfg.usesSessions() && s.sessions == nil:
		return nil, errors.Join(ErrMissingIssuer, errors.New("session"))
	}
	return s, nil
}

// Mode returns the configured credential mode.
func (s *Service) Mode() Mode { return s.cfg.Mode }

// Issue implements Issuer.
func (s *Service) Issue(ctx context.Context, userID string) (Result, error) {
	switch s.cfg.Mode {
	case ModeJWT:
		return s.jwt.Issue(ctx, userID)
	case ModeToken:
		return s.opaque.Issue(ctx, userID)
	default:
		return SessionOnly{}, nil
	}
}

// Deliver starts the session when configured and applies JWT cookie settings.
// The returned result is what goes into the response body.
func (s *Service) Deliver(w http.ResponseWriter, userID string, res Result) (Result, error) {
	if s.cfg.usesSessions() {
		if err := s.sessions.Start(w, userID); err != nil {
			return nil, err
		}
	}
	if pair, ok := res.(JWTPair); ok && s.jwt != nil {
		return s.jwt.Deliver(w, pair, s.cfg.CookieSecure), nil
	}
	return res, nil
}

// Refresh trades a refresh token, taken from the body or the refresh cookie,
// for a new access token. The access cookie is updated when HTTPOnly is on.
func (s *Service) Refresh(ctx context.Context, w http.ResponseWriter, r *http.Request, refresh string) (JWTPair, error) {
	if s.cfg.Mode != ModeJWT {
		return JWTPair{}, ErrUnsupported
	}
	pair, err := s.jwt.Refresh(ctx, s.jwt.refreshToken(r, refresh))
	if err != nil {
		return JWTPair{}, err
	}
	return s.jwt.Deliver(w, pair, s.cfg.CookieSecure), nil
}

// VerifyToken checks a JWT without resolving a user.
func (s *Service) VerifyToken(ctx context.Context, raw string) error {
	if s.cfg.Mode != ModeJWT {
		return ErrUnsupported
	}
	return s.jwt.Verify(ctx, raw)
}

// Logout ends whatever the configured mode handed out. In token mode without
// sessions the request must carry a valid key. In JWT mode the cookies are
// cleared first, then the refresh token is revoked when a revocation list is set.
func (s *Service) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request, refresh string) error {
	userID, err := s.Authenticate(r)
	if err != nil && !errors.Is(err, ErrUnauthenticated) {
		return err
	}
	if userID == "" && s.cfg.Mode == ModeToken && !s.cfg.usesSessions() {
		return ErrNotLoggedIn
	}

	if err := s.SignOut(ctx, w, userID); err != nil {
		return err
	}
	if s.cfg.Mode == ModeJWT {
		s.jwt.Clear(w, s.cfg.CookieSecure)
		return s.jwt.Revoke(ctx, s.jwt.refreshToken(r, refresh))
	}
	return nil
}

// SignOut deletes the user's API key and clears the session cookie.
// An empty userID only clears the cookie.
func (s *Service) SignOut(ctx context.Context, w http.ResponseWriter, userID string) error {
	if s.opaque != nil && userID != "" {
		if err := s.opaque.Revoke(ctx, userID); err != nil {
			return err
		}
	}
	if s.sessions != nil && s.cfg.usesSessions() {
		s.sessions.Clear(w)
	}
	return nil
}

// Authenticate resolves the user behind the request using the configured
// credential, falling back to the session cookie when sessions are on.
func (s *Service) Authenticate(r *http.Request) (string, error) {
	var primary func(*http.Request) (string, error)
	switch s.cfg.Mode {
	case ModeJWT:
		primary = s.jwt.Authenticate
	case ModeToken:
		primary = s.opaque.Authenticate
	}

	if primary != nil {
		userID, err := primary(r)
		if err == nil {
			return userID, nil
		}
		if !errors.Is(err, ErrUnauthenticated) {
			return "", err
		}
	}
	if s.sessions != nil && s.cfg.usesSessions() {
		return s.sessions.Authenticate(r)
	}
	return "", ErrUnauthenticated
}

// Middleware rejects unauthenticated requests with onUnauthorized and stores
// the user ID in the request context otherwise.
func (s *Service) Middleware(onUnauthorized func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := s.Authenticate(r)
			if err != nil {
				onUnauthorized(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

type userIDKey struct{}

// WithUserID stores the authenticated user ID in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated user set by Middleware.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}
