package mfa

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrymomot/restauth/pkg/totp"
)

// TOTP is the time-based one-time password factor.
type TOTP struct {
	store    Store
	verifier totp.Verifier
	issuer   string
	sealer   *totp.Sealer
	now      func() time.Time
}

// NewTOTP builds the TOTP factor. Secrets are sealed at rest when
// cfg.EncryptionKey is set.
func NewTOTP(cfg Config, store Store, opts ...Option) (*TOTP, error) {
	o := newOptions(opts)

	var sealer *totp.Sealer
	if cfg.EncryptionKey != "" {
		s, err := totp.ParseSealer(cfg.EncryptionKey)
		if err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
		sealer = s
	}

	return &TOTP{
		store:    store,
		verifier: cfg.verifier(),
		issuer:   cfg.TOTPIssuer,
		sealer:   sealer,
		now:      o.now,
	}, nil
}

// GenerateSecret returns a new base32 secret.
func (f *TOTP) GenerateSecret() (string, error) {
	return totp.GenerateSecretKey()
}

// ProvisioningURI builds the otpauth:// URI for the authenticator app.
func (f *TOTP) ProvisioningURI(accountName, secret string) (string, error) {
	uri, err := totp.GetTOTPURI(totp.TOTPParams{
		Secret:      secret,
		AccountName: accountName,
		Issuer:      f.issuer,
		Digits:      f.verifier.Digits,
		Period:      f.verifier.Period,
	})
	if errors.Is(err, totp.ErrInvalidSecret) || errors.Is(err, totp.ErrMissingSecret) {
		return "", ErrInvalidSecret
	}
	return uri, err
}

// VerifyCode checks code against secret at the current time.
func (f *TOTP) VerifyCode(secret, code string) (bool, error) {
	ok, err := f.verifier.Verify(secret, strings.TrimSpace(code), f.now())
	if errors.Is(err, totp.ErrInvalidSecret) {
		return false, ErrInvalidSecret
	}
	return ok, err
}

// Activate stores secret for the user, replacing any previous one.
func (f *TOTP) Activate(ctx context.Context, userID, secret string) error {
	a, err := f.newRecord(userID, secret)
	if err != nil {
		return err
	}
	return f.store.Upsert(ctx, a)
}

// Enroll stores secret only if the user has no TOTP factor yet.
func (f *TOTP) Enroll(ctx context.Context, userID, secret string) error {
	a, err := f.newRecord(userID, secret)
	if err != nil {
		return err
	}
	if err := f.store.Insert(ctx, a); err != nil {
		if errors.Is(err, ErrAuthenticatorExists) {
			return ErrAlreadyEnrolled
		}
		return err
	}
	return nil
}

// Deactivate removes the TOTP record.
func (f *TOTP) Deactivate(ctx context.Context, userID string) error {
	return f.store.Delete(ctx, userID, FactorTOTP)
}

// Validate checks code against the stored secret and records the use.
// A user without a TOTP factor never validates.
func (f *TOTP) Validate(ctx context.Context, userID, code string) (bool, error) {
	a, err := f.store.Get(ctx, userID, FactorTOTP)
	if errors.Is(err, ErrAuthenticatorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	secret, err := f.open(a.Data.Secret, userID)
	if err != nil {
		return false, err
	}

	now := f.now()
	ok, err := f.verifier.Verify(secret, strings.TrimSpace(code), now)
	if err != nil || !ok {
		return false, err
	}

	if err := f.store.Touch(ctx, userID, FactorTOTP, now); err != nil && !errors.Is(err, ErrAuthenticatorNotFound) {
		return false, err
	}
	return true, nil
}

// Enabled reports whether the user has a TOTP record.
func (f *TOTP) Enabled(ctx context.Context, userID string) (bool, error) {
	_, err := f.store.Get(ctx, userID, FactorTOTP)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrAuthenticatorNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Record returns the stored TOTP authenticator or ErrAuthenticatorNotFound.
func (f *TOTP) Record(ctx context.Context, userID string) (*Authenticator, error) {
	return f.store.Get(ctx, userID, FactorTOTP)
}

func (f *TOTP) newRecord(userID, secret string) (*Authenticator, error) {
	secret = strings.ToUpper(strings.TrimSpace(secret))
	if !totp.ValidateSecretKeyRegex.MatchString(secret) {
		return nil, ErrInvalidSecret
	}
	sealed, err := f.seal(secret, userID)
	if err != nil {
		return nil, err
	}
	return &Authenticator{
		UserID:    userID,
		Type:      FactorTOTP,
		Data:      Data{Secret: sealed},
		CreatedAt: f.now().UTC(),
	}, nil
}

func (f *TOTP) seal(secret, userID string) (string, error) {
	if f.sealer == nil {
		return secret, nil
	}
	return f.sealer.Seal(secret, userID)
}

func (f *TOTP) open(stored, userID string) (string, error) {
	if f.sealer == nil {
		return stored, nil
	}
	return f.sealer.Open(stored, userID)
}
