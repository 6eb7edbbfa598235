package mfa

import (
	"context"
	"time"

	"github.com/dmitrymomot/restauth/pkg/credential"
)

// FactorType identifies the kind of second factor an Authenticator holds.
type FactorType string

const (
	FactorTOTP          FactorType = "totp"
	FactorRecoveryCodes FactorType = "recovery_codes"
)

// Valid reports whether t is a known factor type.
func (t FactorType) Valid() bool {
	return t == FactorTOTP || t == FactorRecoveryCodes
}

// Authenticator is the persisted second factor of a user. At most one record
// exists per (UserID, Type).
type Authenticator struct {
	UserID     string     `json:"user_id" bson:"user_id" dynamodbav:"user_id"`
	Type       FactorType `json:"type" bson:"type" dynamodbav:"type"`
	Data       Data       `json:"data" bson:"data" dynamodbav:"data"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at" dynamodbav:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at" bson:"last_used_at" dynamodbav:"last_used_at"`
}

// Data is the factor payload. TOTP records use Secret, recovery code records
// use Seed and UsedMask. UsedMask is always written so that stores can run
// bit operations on it.
type Data struct {
	Secret   string `json:"secret,omitempty" bson:"secret,omitempty" dynamodbav:"secret,omitempty"`
	Seed     string `json:"seed,omitempty" bson:"seed,omitempty" dynamodbav:"seed,omitempty"`
	UsedMask int64  `json:"used_mask" bson:"used_mask" dynamodbav:"used_mask"`
}

// Clone returns a deep copy.
func (a *Authenticator) Clone() *Authenticator {
	if a == nil {
		return nil
	}
	c := *a
	if a.LastUsedAt != nil {
		t := *a.LastUsedAt
		c.LastUsedAt = &t
	}
	return &c
}

// User is the subject of an enrollment.
type User struct {
	ID          string
	AccountName string // shown in authenticator apps, usually the email
}

// LoginRequest carries primary credentials.
type LoginRequest struct {
	Email    string
	Password string
}

// PrimaryAuthenticator checks primary credentials and returns the user ID.
// Rejected credentials must be reported as ErrInvalidCredentials.
type PrimaryAuthenticator interface {
	Authenticate(ctx context.Context, req LoginRequest) (string, error)
}

// PrimaryAuthenticatorFunc adapts a function to PrimaryAuthenticator.
type PrimaryAuthenticatorFunc func(ctx context.Context, req LoginRequest) (string, error)

// Authenticate calls f.
func (f PrimaryAuthenticatorFunc) Authenticate(ctx context.Context, req LoginRequest) (string, error) {
	return f(ctx, req)
}

// VerifyRequest is the second step of a login: the ephemeral token plus a
// TOTP or recovery code.
type VerifyRequest struct {
	EphemeralToken string
	Code           string
}

// LoginResult is either a challenge (MFARequired with EphemeralToken) or
// issued credentials.
type LoginResult struct {
	UserID         string
	State          FlowState
	MFARequired    bool
	EphemeralToken string
	Credentials    credential.Result
}

// ActivationInit is what a user needs to add the account to an authenticator app.
type ActivationInit struct {
	Secret          string
	TOTPURL         string
	QRCodeDataURI   string
	ActivationToken string
}

// ActivationConfirm echoes the activation secret and token with the first code.
type ActivationConfirm struct {
	Secret          string
	Code            string
	ActivationToken string
}

// Status describes the TOTP factor of a user.
type Status struct {
	Enabled    bool
	CreatedAt  *time.Time
	LastUsedAt *time.Time
}

// Metrics receives counters from the service. Implemented by pkg/metrics.
type Metrics interface {
	Login(result string)
	Verification(factor, result string)
	Enrollment(action, result string)
}

type noopMetrics struct{}

func (noopMetrics) Login(string)                {}
func (noopMetrics) Verification(string, string) {}
func (noopMetrics) Enrollment(string, string)   {}
