package credential

import "errors"

var (
	ErrUnauthenticated = errors.New("credential: authentication credentials were not provided or are invalid")
	ErrInvalidMode     = errors.New("credential: invalid mode")
	ErrInvalidConfig   = errors.New("credential: invalid configuration")
	ErrMissingIssuer   = errors.New("credential: issuer for the configured mode is not set")
	ErrTokenNotFound   = errors.New("credential: token not found")
	ErrInvalidToken    = errors.New("credential: token is invalid or expired")
	ErrMissingToken    = errors.New("credential: refresh token was not provided")
	ErrNotLoggedIn     = errors.New("credential: logout requires an authenticated request")
	ErrUnsupported     = errors.New("credential: not supported by the configured mode")
)
