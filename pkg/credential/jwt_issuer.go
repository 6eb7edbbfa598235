package credential

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/restauth/pkg/jwt"
)

// JWTIssuer mints access/refresh pairs, authenticates access tokens and
// trades refresh tokens for new access tokens.
type JWTIssuer struct {
	svc     *jwt.Service
	cfg     JWTConfig
	revoked RevocationList
	jwtOpts []jwt.Option
}

// JWTOption configures a JWTIssuer.
type JWTOption func(*JWTIssuer)

// WithTokenOptions passes options to the underlying token service.
func WithTokenOptions(opts ...jwt.Option) JWTOption {
	return func(i *JWTIssuer) { i.jwtOpts = append(i.jwtOpts, opts...) }
}

// WithRevocationList enables refresh token revocation on logout.
// Without it logout only clears cookies.
func WithRevocationList(l RevocationList) JWTOption {
	return func(i *JWTIssuer) { i.revoked = l }
}

// NewJWTIssuer validates cfg and builds the signer.
func NewJWTIssuer(cfg JWTConfig, opts ...JWTOption) (*JWTIssuer, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.Join(ErrInvalidConfig, errors.New("jwt ttl must be positive"))
	}

	i := &JWTIssuer{cfg: cfg}
	for _, opt := range opts {
		opt(i)
	}

	base := []jwt.Option{jwt.WithIssuer(cfg.Issuer)}
	if cfg.Audience != "" {
		base = append(base, jwt.WithAudience(cfg.Audience))
	}
	svc, err := jwt.NewFromString(cfg.SigningKey, append(base, i.jwtOpts...)...)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	i.svc = svc
	return i, nil
}

// Issue returns a new access and refresh pair for userID.
func (i *JWTIssuer) Issue(_ context.Context, userID string) (Result, error) {
	access, accessExp, err := i.svc.Issue(userID, jwt.AccessToken, i.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := i.svc.Issue(userID, jwt.RefreshToken, i.cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}

	pair := JWTPair{Access: access, Refresh: refresh}
	if i.cfg.ReturnExpiration {
		pair.AccessExpiration = &accessExp
		pair.RefreshExpiration = &refreshExp
	}
	return pair, nil
}

// Refresh issues a new access token for a valid, unrevoked refresh token.
// The refresh token itself is not rotated, so Refresh is empty in the result.
func (i *JWTIssuer) Refresh(ctx context.Context, raw string) (JWTPair, error) {
	claims, err := i.verifyRefresh(ctx, raw)
	if err != nil {
		return JWTPair{}, err
	}

	access, exp, err := i.svc.Issue(claims.Subject, jwt.AccessToken, i.cfg.AccessTTL)
	if err != nil {
		return JWTPair{}, err
	}
	pair := JWTPair{Access: access}
	if i.cfg.ReturnExpiration {
		pair.AccessExpiration = &exp
	}
	return pair, nil
}

// Verify accepts any access or refresh token this issuer signed. Revoked
// refresh tokens fail.
func (i *JWTIssuer) Verify(ctx context.Context, raw string) error {
	if raw == "" {
		return ErrMissingToken
	}
	claims := &jwt.Claims{}
	if err := i.svc.Parse(raw, claims); err != nil {
		return errors.Join(ErrInvalidToken, err)
	}
	switch claims.TokenType {
	case jwt.AccessToken:
		return nil
	case jwt.RefreshToken:
		return i.checkRevoked(ctx, claims)
	default:
		return ErrInvalidToken
	}
}

// Revoke blacklists a refresh token until it expires. It is a no-op without
// a revocation list.
func (i *JWTIssuer) Revoke(ctx context.Context, raw string) error {
	if i.revoked == nil {
		return nil
	}
	claims, err := i.verifyRefresh(ctx, raw)
	if err != nil {
		return err
	}
	return i.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (i *JWTIssuer) verifyRefresh(ctx context.Context, raw string) (*jwt.Claims, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}
	claims, err := i.svc.Verify(raw, jwt.RefreshToken)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if err := i.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (i *JWTIssuer) checkRevoked(ctx context.Context, claims *jwt.Claims) error {
	if i.revoked == nil || claims.ID == "" {
		return nil
	}
	revoked, err := i.revoked.Revoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrInvalidToken
	}
	return nil
}

// refreshToken prefers the value from the request body and falls back to the
// refresh cookie when HTTPOnly is on.
func (i *JWTIssuer) refreshToken(r *http.Request, fromBody string) string {
	if fromBody != "" || !i.cfg.HTTPOnly {
		return fromBody
	}
	raw, err := jwt.CookieTokenExtractor(i.cfg.RefreshCookie)(r)
	if err != nil {
		return ""
	}
	return raw
}

// Deliver sets the token cookies when HTTPOnly is on and blanks the refresh
// token in the returned body.
func (i *JWTIssuer) Deliver(w http.ResponseWriter, pair JWTPair, secure bool) JWTPair {
	if !i.cfg.HTTPOnly {
		return pair
	}

	setTokenCookie(w, i.cfg.AccessCookie, pair.Access, i.cfg.AccessTTL, secure)
	if pair.Refresh != "" {
		setTokenCookie(w, i.cfg.RefreshCookie, pair.Refresh, i.cfg.RefreshTTL, secure)
		pair.Refresh = ""
	}
	return pair
}

// Clear expires both token cookies.
func (i *JWTIssuer) Clear(w http.ResponseWriter, secure bool) {
	setTokenCookie(w, i.cfg.AccessCookie, "", -time.Second, secure)
	setTokenCookie(w, i.cfg.RefreshCookie, "", -time.Second, secure)
}

// Authenticate resolves a Bearer access token, or the access cookie when HTTPOnly is on.
func (i *JWTIssuer) Authenticate(r *http.Request) (string, error) {
	extract := jwt.BearerTokenExtractor
	if i.cfg.HTTPOnly {
		extract = jwt.FirstOf(jwt.BearerTokenExtractor, jwt.CookieTokenExtractor(i.cfg.AccessCookie))
	}

	raw, err := extract(r)
	if err != nil {
		return "", ErrUnauthenticated
	}
	claims, err := i.svc.Verify(raw, jwt.AccessToken)
	if err != nil {
		return "", errors.Join(ErrUnauthenticated, err)
	}
	return claims.Subject, nil
}

func setTokenCookie(w http.ResponseWriter, name, value string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
