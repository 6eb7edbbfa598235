package mfa

import "errors"

// Kind classifies client-facing MFA errors.
type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindInvalidChallenge
	KindInvalidCode
	KindAlreadyEnrolled
	KindNotEnrolled
)

// String returns the error code used in API responses.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidChallenge:
		return "invalid_challenge"
	case KindInvalidCode:
		return "invalid_code"
	case KindAlreadyEnrolled:
		return "already_enrolled"
	case KindNotEnrolled:
		return "not_enrolled"
	default:
		return "unknown"
	}
}

// Error is a client error. Field is empty for errors reported as a detail
// message rather than against an input field.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "mfa: " + e.Message
	}
	return "mfa: " + e.Field + ": " + e.Message
}

// Is matches copies of a sentinel: same kind, field and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Field == e.Field && t.Message == e.Message
}

var (
	ErrInvalidChallenge = &Error{Kind: KindInvalidChallenge, Field: "ephemeral_token", Message: "Invalid or expired token."}
	ErrInvalidCode      = &Error{Kind: KindInvalidCode, Field: "code", Message: "Invalid code."}
	ErrAlreadyEnrolled  = &Error{Kind: KindAlreadyEnrolled, Message: "MFA is already enabled. Deactivate it before activating again."}
	ErrNotEnrolled      = &Error{Kind: KindNotEnrolled, Message: "MFA is not enabled."}

	ErrInvalidCredentials      = &Error{Kind: KindValidation, Field: "non_field_errors", Message: "Unable to log in with provided credentials."}
	ErrInvalidSecret           = &Error{Kind: KindValidation, Field: "secret", Message: "Invalid secret."}
	ErrInvalidActivationToken  = &Error{Kind: KindValidation, Field: "activation_token", Message: "Invalid or expired activation token."}
	ErrInvalidActivationCode   = &Error{Kind: KindValidation, Field: "code", Message: "Invalid code. Please check your authenticator app and try again."}
	ErrInvalidDeactivationCode = &Error{Kind: KindValidation, Field: "code", Message: "Invalid code."}
)

var (
	ErrAuthenticatorNotFound = errors.New("mfa: authenticator not found")
	ErrAuthenticatorExists   = errors.New("mfa: authenticator already exists")
	ErrStoreFailure          = errors.New("mfa: store failure")
	ErrInvalidConfig         = errors.New("mfa: invalid configuration")
)

// AsError returns the client error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func storeFailure(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}
	return errors.Join(ErrStoreFailure, err)
}
