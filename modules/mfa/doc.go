// Package mfa is the HTTP module for login with an optional second factor
// and for TOTP enrollment management.
//
// Login returns credentials directly for users without a factor. Users with
// TOTP enabled get {"ephemeral_token", "mfa_required": true} and finish at
// /auth/mfa/verify with a TOTP or recovery code. The credential shape follows
// the configured mode: a JWT pair with the user, an opaque {"key"}, or 204 with
// a session cookie.
//
//	mod, err := mfa.New(mfa.Options{
//		Service:     svc,
//		Credentials: creds,
//		Users:       users,
//		Limiter:     bucket,
//		Metrics:     metrics.New(reg),
//		Logger:      log,
//	})
//	srv.Run(ctx, mod.Handle())
package mfa
