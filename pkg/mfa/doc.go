// Package mfa implements the second-factor step of a REST login.
//
// A login that passes the password check either receives credentials right
// away or, when the user has a TOTP factor, an ephemeral token. The client
// exchanges that token together with a TOTP or recovery code for the same
// credentials a plain login would produce:
//
//	res, err := svc.Login(ctx, primary, mfa.LoginRequest{Email: email, Password: pw})
//	if res.MFARequired {
//		res, err = svc.Verify(ctx, mfa.VerifyRequest{EphemeralToken: res.EphemeralToken, Code: code})
//	}
//
// Enrollment is a two step flow. BeginActivation returns a fresh secret with a
// provisioning URI, a QR code and an activation token binding the secret to the
// user; ConfirmActivation stores the secret once a code for it checks out and
// returns a new recovery code set. Deactivate removes TOTP and recovery codes
// together.
//
// Recovery codes are derived from a stored seed with HMAC-SHA256 and only a
// bit mask of used codes is persisted. Marking a code as used is a single
// conditional write in every Store implementation, so a code can be redeemed
// once even under concurrent requests.
//
// Client errors are *Error values classified by Kind. Anything else returned
// by the service wraps ErrStoreFailure or comes from a collaborator.
package mfa
