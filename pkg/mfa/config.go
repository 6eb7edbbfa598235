package mfa

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/restauth/pkg/totp"
)

const minSigningSecretLength = 32

// Config holds the MFA settings, loaded from MFA_* variables.
type Config struct {
	RecoveryCodeCount int           `env:"MFA_RECOVERY_CODE_COUNT" envDefault:"10"`
	TOTPDigits        int           `env:"MFA_TOTP_DIGITS" envDefault:"6"`
	TOTPPeriod        time.Duration `env:"MFA_TOTP_PERIOD" envDefault:"30s"`
	TOTPSkew          int           `env:"MFA_TOTP_SKEW" envDefault:"1"`
	TOTPIssuer        string        `env:"MFA_TOTP_ISSUER" envDefault:"restauth"`
	EphemeralTokenTTL time.Duration `env:"MFA_EPHEMERAL_TOKEN_TTL" envDefault:"5m"`
	SigningSecret     string        `env:"MFA_SIGNING_SECRET,required"`
	EncryptionKey     string        `env:"MFA_TOTP_ENCRYPTION_KEY"`
	Store             string        `env:"MFA_STORE" envDefault:"memory"`
	QRCodeSize        int           `env:"MFA_QR_CODE_SIZE" envDefault:"256"`
}

// DefaultConfig returns the defaults with the given signing secret.
func DefaultConfig(signingSecret string) Config {
	return Config{
		RecoveryCodeCount: 10,
		TOTPDigits:        totp.DefaultDigits,
		TOTPPeriod:        totp.DefaultPeriod * time.Second,
		TOTPSkew:          totp.DefaultSkew,
		TOTPIssuer:        "restauth",
		EphemeralTokenTTL: 5 * time.Minute,
		SigningSecret:     signingSecret,
		Store:             "memory",
		QRCodeSize:        256,
	}
}

// Validate is called by config.Load.
func (c Config) Validate() error {
	switch {
	case c.RecoveryCodeCount < 1 || c.RecoveryCodeCount > totp.MaxRecoveryCodeCount:
		return fmt.Errorf("%w: recovery code count must be between 1 and %d", ErrInvalidConfig, totp.MaxRecoveryCodeCount)
	case c.TOTPDigits != 6 && c.TOTPDigits != 8:
		return fmt.Errorf("%w: totp digits must be 6 or 8", ErrInvalidConfig)
	case c.TOTPPeriod < time.Second || c.TOTPPeriod%time.Second != 0:
		return fmt.Errorf("%w: totp period must be a whole number of seconds", ErrInvalidConfig)
	case c.TOTPSkew < 0 || c.TOTPSkew > 10:
		return fmt.Errorf("%w: totp skew must be between 0 and 10", ErrInvalidConfig)
	case c.TOTPIssuer == "":
		return fmt.Errorf("%w: totp issuer is required", ErrInvalidConfig)
	case c.EphemeralTokenTTL <= 0:
		return fmt.Errorf("%w: ephemeral token ttl must be positive", ErrInvalidConfig)
	case len(c.SigningSecret) < minSigningSecretLength:
		return fmt.Errorf("%w: signing secret must be at least %d bytes", ErrInvalidConfig, minSigningSecretLength)
	case c.QRCodeSize < 0:
		return fmt.Errorf("%w: qr code size must not be negative", ErrInvalidConfig)
	}

	switch c.Store {
	case "memory", "postgres", "mongo", "dynamo":
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}

	if c.EncryptionKey != "" {
		if _, err := totp.DecodeEncryptionKey(c.EncryptionKey); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (c Config) verifier() totp.Verifier {
	return totp.Verifier{
		Digits: c.TOTPDigits,
		Period: int(c.TOTPPeriod / time.Second),
		Skew:   c.TOTPSkew,
	}
}
