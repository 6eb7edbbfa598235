// Package token provides compact, signed, timestamped tokens carrying a JSON payload.
//
// Token format: base64url(json).base64url(HMAC-SHA256(json))
//
// A Signer binds tokens to a purpose. Its key is derived from a shared secret with
// HKDF-SHA256 (golang.org/x/crypto/hkdf) using the purpose as the info parameter, so
// the same secret can back several token kinds that cannot be swapped for each other.
//
// # Usage
//
//	s, err := token.NewSigner([]byte(secret), "mfa-challenge")
//	if err != nil {
//	    return err
//	}
//
//	tok, err := token.Sign(s, Payload{UserID: "42"})
//	p, err := token.Verify[Payload](s, tok, 5*time.Minute)
//
// Verify returns ErrInvalidToken for malformed input, ErrSignatureInvalid when the
// signature does not match and ErrExpiredToken when the token is older than maxAge.
// A token whose issue time is ahead of the signer clock by more than the leeway is
// treated as malformed.
//
// GenerateToken and ParseToken are the untimed building blocks and accept a raw key.
package token
