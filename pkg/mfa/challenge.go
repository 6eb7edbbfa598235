package mfa

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/dmitrymomot/restauth/pkg/token"
)

const (
	challengePurpose  = "mfa-challenge"
	activationPurpose = "mfa-activation"
)

type challengePayload struct {
	UserID string `json:"uid"`
}

// Challenges issues the ephemeral token handed out between the password step
// and the second factor. Tokens are stateless and cannot be revoked before
// they expire.
type Challenges struct {
	signer *token.Signer
	ttl    time.Duration
}

// NewChallenges signs login challenges with secret. Tokens expire after ttl.
func NewChallenges(secret []byte, ttl time.Duration, opts ...Option) (*Challenges, error) {
	if ttl <= 0 {
		return nil, errors.Join(ErrInvalidConfig, errors.New("challenge ttl must be positive"))
	}
	o := newOptions(opts)
	signer, err := token.NewSigner(secret, challengePurpose, token.WithClock(o.now))
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return &Challenges{signer: signer, ttl: ttl}, nil
}

// Issue returns an ephemeral token for userID.
func (c *Challenges) Issue(userID string) (string, error) {
	return token.Sign(c.signer, challengePayload{UserID: userID})
}

// Verify returns the user bound to tok. Every failure is ErrInvalidChallenge.
func (c *Challenges) Verify(tok string) (string, error) {
	p, err := token.Verify[challengePayload](c.signer, tok, c.ttl)
	if err != nil || p.UserID == "" {
		return "", ErrInvalidChallenge
	}
	return p.UserID, nil
}

type activationPayload struct {
	UserID string `json:"uid"`
	Secret string `json:"secret"`
}

// ActivationTokens bind a pending TOTP secret to the user it was generated for.
type ActivationTokens struct {
	signer *token.Signer
	ttl    time.Duration
}

// NewActivationTokens signs activation tokens with secret. Tokens expire after ttl.
func NewActivationTokens(secret []byte, ttl time.Duration, opts ...Option) (*ActivationTokens, error) {
	if ttl <= 0 {
		return nil, errors.Join(ErrInvalidConfig, errors.New("activation ttl must be positive"))
	}
	o := newOptions(opts)
	signer, err := token.NewSigner(secret, activationPurpose, token.WithClock(o.now))
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return &ActivationTokens{signer: signer, ttl: ttl}, nil
}

// Issue binds a token to the user and the proposed secret.
func (a *ActivationTokens) Issue(userID, secret string) (string, error) {
	return token.Sign(a.signer, activationPayload{UserID: userID, Secret: secret})
}

// Verify checks that tok was issued for userID and secret.
func (a *ActivationTokens) Verify(tok, userID, secret string) error {
	p, err := token.Verify[activationPayload](a.signer, tok, a.ttl)
	if err != nil {
		return ErrInvalidActivationToken
	}
	sameUser := subtle.ConstantTimeCompare([]byte(p.UserID), []byte(userID))
	sameSecret := subtle.ConstantTimeCompare([]byte(p.Secret), []byte(secret))
	if userID == "" || sameUser&sameSecret != 1 {
		return ErrInvalidActivationToken
	}
	return nil
}
