package mfa

import (
	"context"
	"errors"

	"github.com/dmitrymomot/restauth/pkg/auth"
	mfasvc "github.com/dmitrymomot/restauth/pkg/mfa"
)

// PasswordPrimary adapts the password authenticator to the login flow.
// Unknown users and wrong passwords are the same error.
func PasswordPrimary(users auth.PasswordAuthenticator) mfasvc.PrimaryAuthenticator {
	return mfasvc.PrimaryAuthenticatorFunc(func(ctx context.Context, req mfasvc.LoginRequest) (string, error) {
		user, err := users.Authenticate(ctx, req.Email, req.Password)
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUserNotFound):
			return "", mfasvc.ErrInvalidCredentials
		case err != nil:
			return "", err
		}
		return user.ID.String(), nil
	})
}
