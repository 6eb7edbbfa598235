// Package auth provides password-based primary authentication.
//
// PasswordAuthenticator registers users and checks their email/password pair
// with bcrypt. Storage is abstracted behind PasswordStorage; MemoryStorage is the
// in-process implementation used by the service binary and the tests.
//
//	authn := auth.NewPasswordService(auth.NewMemoryStorage(), auth.WithBcryptCost(12))
//	user, err := authn.Authenticate(ctx, "jane@example.com", "correct horse")
//	if errors.Is(err, auth.ErrInvalidCredentials) {
//		// unknown email or wrong password; callers cannot tell which
//	}
//
// Emails are trimmed and lower-cased before lookup.
package auth
