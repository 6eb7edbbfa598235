package totp

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
)

const (
	DefaultDigits = 6  // Standard 6-digit TOTP codes
	DefaultPeriod = 30 // 30-second step (RFC 6238 standard)
	DefaultSkew   = 1  // Steps accepted on each side of the current one

	secretSize = 20 // 160-bit secret (RFC 4226 recommendation)
)

var (
	// ValidateSecretKeyRegex ensures Base32 format: uppercase A-Z, digits 2-7, optional padding
	ValidateSecretKeyRegex = regexp.MustCompile("^[A-Z2-7]+=*$")

	secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// TOTPParams contains the parameters for provisioning URI generation
type TOTPParams struct {
	Secret      string // Base32-encoded TOTP secret key (required)
	AccountName string // User identifier like email (required)
	Issuer      string // Service name displayed in authenticator apps (required)
	Digits      int    // Number of digits in generated codes (optional, defaults to 6)
	Period      int    // Code validity period in seconds (optional, defaults to 30)
}

// Validate ensures all required TOTP parameters are present and valid
func (p TOTPParams) Validate() error {
	if p.Secret == "" {
		return ErrMissingSecret
	}
	if !ValidateSecretKeyRegex.MatchString(normalizeSecret(p.Secret)) {
		return ErrInvalidSecret
	}
	if p.AccountName == "" {
		return ErrMissingAccountName
	}
	if p.Issuer == "" {
		return ErrMissingIssuer
	}
	if p.Digits != 0 && p.Digits != 6 && p.Digits != 8 {
		return ErrInvalidDigits
	}
	if p.Period < 0 {
		return ErrInvalidPeriod
	}
	return nil
}

// GetDefaults returns a copy with RFC 6238 standard defaults applied to zero-valued fields
func (p TOTPParams) GetDefaults() TOTPParams {
	if p.Digits == 0 {
		p.Digits = DefaultDigits
	}
	if p.Period == 0 {
		p.Period = DefaultPeriod
	}
	return p
}

// GenerateSecretKey generates a new Base32-encoded secret key for TOTP.
func GenerateSecretKey() (string, error) {
	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return "", errors.Join(ErrFailedToGenerateSecretKey, err)
	}
	return secretEncoding.EncodeToString(secret), nil
}

// GetTOTPURI creates an otpauth:// URI for use with authenticator apps.
// The URI format follows the Key Uri Format specification:
// https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func GetTOTPURI(params TOTPParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	params = params.GetDefaults()

	raw, err := secretEncoding.DecodeString(strings.TrimRight(normalizeSecret(params.Secret), "="))
	if err != nil {
		return "", errors.Join(ErrInvalidSecret, err)
	}

	key, err := pqtotp.Generate(pqtotp.GenerateOpts{
		Issuer:      params.Issuer,
		AccountName: params.AccountName,
		Period:      uint(params.Period),
		Secret:      raw,
		Digits:      otp.Digits(params.Digits),
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", errors.Join(ErrFailedToBuildURI, err)
	}

	return key.URL(), nil
}

// Verifier checks submitted codes against a secret with a clock-skew window.
type Verifier struct {
	Digits int // 6 or 8
	Period int // seconds per step
	Skew   int // steps accepted before and after the current one
}

// DefaultVerifier uses 6 digits, 30 second steps and a skew of one step.
var DefaultVerifier = Verifier{Digits: DefaultDigits, Period: DefaultPeriod, Skew: DefaultSkew}

func (v Verifier) withDefaults() Verifier {
	if v.Digits == 0 {
		v.Digits = DefaultDigits
	}
	if v.Period <= 0 {
		v.Period = DefaultPeriod
	}
	if v.Skew < 0 {
		v.Skew = 0
	}
	return v
}

func (v Verifier) opts() pqtotp.ValidateOpts {
	return pqtotp.ValidateOpts{
		Period:    uint(v.Period),
		Digits:    otp.Digits(v.Digits),
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Verify reports whether code matches the secret for any step in the window around at.
// Every candidate step is compared, so the time taken does not depend on which step matched.
// Codes that are not exactly Digits long or contain non-digits never match.
func (v Verifier) Verify(secret, code string, at time.Time) (bool, error) {
	v = v.withDefaults()

	secret = normalizeSecret(secret)
	if !ValidateSecretKeyRegex.MatchString(secret) {
		return false, ErrInvalidSecret
	}
	if !isNumeric(code, v.Digits) {
		return false, nil
	}

	step := time.Duration(v.Period) * time.Second
	matched := 0
	for i := -v.Skew; i <= v.Skew; i++ {
		candidate, err := pqtotp.GenerateCodeCustom(secret, at.Add(time.Duration(i)*step), v.opts())
		if err != nil {
			return false, errors.Join(ErrInvalidSecret, err)
		}
		matched |= subtle.ConstantTimeCompare([]byte(candidate), []byte(code))
	}

	return matched == 1, nil
}

// Generate returns the code for the step containing at.
func (v Verifier) Generate(secret string, at time.Time) (string, error) {
	v = v.withDefaults()

	secret = normalizeSecret(secret)
	if !ValidateSecretKeyRegex.MatchString(secret) {
		return "", ErrInvalidSecret
	}

	code, err := pqtotp.GenerateCodeCustom(secret, at, v.opts())
	if err != nil {
		return "", errors.Join(ErrFailedToGenerateTOTP, err)
	}
	return code, nil
}

// ValidateTOTP validates a 6-digit code against the secret at the current time.
func ValidateTOTP(secret, code string) (bool, error) {
	return DefaultVerifier.Verify(secret, strings.TrimSpace(code), time.Now())
}

// GenerateTOTP generates the 6-digit code for the current 30-second window.
func GenerateTOTP(secret string) (string, error) {
	return DefaultVerifier.Generate(secret, time.Now())
}

// GenerateTOTPWithTime generates the 6-digit code for the 30-second window containing t.
func GenerateTOTPWithTime(secret string, t time.Time) (string, error) {
	return DefaultVerifier.Generate(secret, t)
}

func normalizeSecret(secret string) string {
	return strings.ToUpper(strings.TrimSpace(secret))
}

func isNumeric(code string, digits int) bool {
	if len(code) != digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// GenerateCode returns the code for the given secret, time, digit count and period in seconds.
func GenerateCode(secret string, at time.Time, digits, period int) (string, error) {
	return Verifier{Digits: digits, Period: period}.Generate(secret, at)
}
