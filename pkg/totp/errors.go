package totp

import "errors"

var (
	ErrFailedToEncryptSecret         = errors.New("failed to encrypt TOTP secret")
	ErrFailedToDecryptSecret         = errors.New("failed to decrypt TOTP secret")
	ErrInvalidCipherTooShort         = errors.New("cipher text too short")
	ErrUnknownSealedFormat           = errors.New("unknown sealed secret format")
	ErrFailedToGenerateEncryptionKey = errors.New("failed to generate encryption key")
	ErrFailedToLoadEncryptionKey     = errors.New("failed to load encryption key")
	ErrInvalidEncryptionKeyLength    = errors.New("invalid encryption key length")
	ErrEncryptionKeyNotSet           = errors.New("TOTP encryption key not set")
	ErrFailedToGenerateSecretKey     = errors.New("failed to generate TOTP secret key")
	ErrFailedToGenerateTOTP          = errors.New("failed to generate TOTP")
	ErrFailedToBuildURI              = errors.New("failed to build provisioning URI")
	ErrMissingSecret                 = errors.New("missing secret")
	ErrInvalidSecret                 = errors.New("invalid secret")
	ErrMissingAccountName            = errors.New("missing account name")
	ErrMissingIssuer                 = errors.New("missing issuer")
	ErrInvalidDigits                 = errors.New("invalid digits, must be 6 or 8")
	ErrInvalidPeriod                 = errors.New("invalid period")
	ErrFailedToGenerateRecoverySeed  = errors.New("failed to generate recovery seed")
	ErrInvalidRecoverySeed           = errors.New("invalid recovery seed")
	ErrInvalidRecoveryCodeIndex      = errors.New("invalid recovery code index")
	ErrInvalidRecoveryCodeCount      = errors.New("invalid recovery code count, must be between 1 and 63")
)
