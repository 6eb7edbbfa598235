package token

import (
	"crypto/sha256"
	"errors"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
)

const (
	keySize = 32
	// DefaultLeeway tolerates small clock drift between replicas for tokens issued "in the future".
	DefaultLeeway = 5 * time.Second
)

// Signer signs and verifies timestamped tokens for a single purpose.
// Keys are derived from the shared secret with HKDF-SHA256 using the purpose as info,
// so a token minted for one purpose never verifies under another.
type Signer struct {
	key     []byte
	purpose string
	now     func() time.Time
	leeway  time.Duration
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLeeway sets how far in the future an issued_at may be before the token is rejected.
func WithLeeway(d time.Duration) Option {
	return func(s *Signer) {
		if d >= 0 {
			s.leeway = d
		}
	}
}

// NewSigner derives a purpose-bound signing key from secret.
func NewSigner(secret []byte, purpose string, opts ...Option) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidSecret
	}
	if purpose == "" {
		return nil, ErrMissingPurpose
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(purpose)), key); err != nil {
		return nil, errors.Join(ErrInvalidSecret, err)
	}

	s := &Signer{
		key:     key,
		purpose: purpose,
		now:     time.Now,
		leeway:  DefaultLeeway,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Purpose returns the purpose the signer is bound to.
func (s *Signer) Purpose() string {
	return s.purpose
}

type envelope[T any] struct {
	Payload  T     `json:"p"`
	IssuedAt int64 `json:"iat"`
}

// Sign encodes payload together with the current time.
func Sign[T any](s *Signer, payload T) (string, error) {
	return GenerateToken(envelope[T]{Payload: payload, IssuedAt: s.now().UnixNano()}, s.key)
}

// Verify checks the signature and age of token and returns its payload.
// A non-positive maxAge rejects every token as expired.
func Verify[T any](s *Signer, token string, maxAge time.Duration) (T, error) {
	var zero T

	env, err := ParseToken[envelope[T]](token, s.key)
	if err != nil {
		return zero, err
	}

	now := s.now()
	issued := time.Unix(0, env.IssuedAt)
	if issued.After(now.Add(s.leeway)) {
		return zero, ErrInvalidToken
	}
	if maxAge <= 0 || now.Sub(issued) > maxAge {
		return zero, ErrExpiredToken
	}

	return env.Payload, nil
}
