package jwt

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access tokens from refresh tokens signed with the same key.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims are the registered claims plus the token type.
type Claims struct {
	gojwt.RegisteredClaims
	TokenType TokenType `json:"token_type,omitempty"`
}

// Service signs and verifies HS256 tokens.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	leeway     time.Duration
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer sets the iss claim on issued tokens and requires it on parsed ones.
func WithIssuer(issuer string) Option {
	return func(s *Service) { s.issuer = issuer }
}

// WithAudience sets the aud claim on issued tokens and requires it on parsed ones.
func WithAudience(audience string) Option {
	return func(s *Service) { s.audience = audience }
}

// WithLeeway tolerates clock drift when checking exp, nbf and iat.
func WithLeeway(d time.Duration) Option {
	return func(s *Service) { s.leeway = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a new JWT service with the provided signing key.
// The key should be at least 32 bytes for HMAC-SHA256.
func New(signingKey []byte, opts ...Option) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}

	s := &Service{
		signingKey: signingKey,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromString is New for string-based configuration.
func NewFromString(signingKey string, opts ...Option) (*Service, error) {
	return New([]byte(signingKey), opts...)
}

// Generate signs any claims structure with HS256.
func (s *Service) Generate(claims gojwt.Claims) (string, error) {
	if claims == nil {
		return "", ErrMissingClaims
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// Issue creates a token of the given type for subject that expires after ttl.
func (s *Service) Issue(subject string, typ TokenType, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, ErrInvalidClaims
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			NotBefore: gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(expiresAt),
		},
		TokenType: typ,
	}
	if s.audience != "" {
		claims.Audience = gojwt.ClaimStrings{s.audience}
	}

	token, err := s.Generate(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	// NumericDate has second precision; report what the token actually carries.
	return token, claims.ExpiresAt.Time, nil
}

// Parse verifies the signature and registered claims and decodes the token into claims.
func (s *Service) Parse(tokenString string, claims gojwt.Claims) error {
	if claims == nil {
		return ErrMissingClaims
	}

	opts := []gojwt.ParserOption{
		gojwt.WithTimeFunc(s.now),
		gojwt.WithLeeway(s.leeway),
		gojwt.WithIssuedAt(),
	}
	if s.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, gojwt.WithAudience(s.audience))
	}

	_, err := gojwt.ParseWithClaims(tokenString, claims, s.keyFunc, opts...)
	return mapError(err)
}

// Verify parses a token issued by Issue and checks its type.
func (s *Service) Verify(tokenString string, typ TokenType) (*Claims, error) {
	claims := &Claims{}
	if err := s.Parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil || claims.Subject == "" {
		return nil, ErrInvalidClaims
	}
	if claims.TokenType != typ {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (s *Service) keyFunc(token *gojwt.Token) (any, error) {
	// Only HS256 is accepted; anything else, "none" included, is an algorithm confusion attempt.
	if _, ok := token.Method.(*gojwt.SigningMethodHMAC); !ok || token.Method.Alg() != gojwt.SigningMethodHS256.Alg() {
		return nil, ErrUnexpectedSigningMethod
	}
	return s.signingKey, nil
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnexpectedSigningMethod):
		return ErrUnexpectedSigningMethod
	case errors.Is(err, gojwt.ErrTokenExpired):
		return ErrExpiredToken
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	default:
		return errors.Join(ErrInvalidToken, err)
	}
}
