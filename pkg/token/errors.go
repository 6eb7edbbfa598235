package token

import "errors"

var (
	ErrInvalidToken     = errors.New("invalid token format")
	ErrSignatureInvalid = errors.New("signature mismatch")
	ErrExpiredToken     = errors.New("token expired")
	ErrInvalidSecret    = errors.New("signing secret must not be empty")
	ErrMissingPurpose   = errors.New("token purpose must not be empty")
)
