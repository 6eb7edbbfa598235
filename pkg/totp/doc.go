// Package totp implements the pure primitives of the second factor: TOTP secrets,
// provisioning URIs and code verification (RFC 6238, built on github.com/pquerna/otp),
// recovery-code derivation from a seed, and AES-256-GCM helpers for storing secrets
// encrypted at rest.
//
// Nothing in this package performs I/O beyond reading crypto/rand.
//
// # TOTP
//
// A secret is 20 random bytes encoded as base32 without padding. Codes are checked by a
// Verifier which accepts the current step and Skew steps on either side:
//
//	secret, _ := totp.GenerateSecretKey()
//	uri, _ := totp.GetTOTPURI(totp.TOTPParams{
//	    Secret:      secret,
//	    AccountName: "alice@example.com",
//	    Issuer:      "Acme",
//	})
//	ok, err := totp.Verifier{Digits: 6, Period: 30, Skew: 1}.Verify(secret, "123456", time.Now())
//
// Every step in the window is compared in constant time, and a malformed secret is
// reported as ErrInvalidSecret rather than a failed match.
//
// # Recovery codes
//
// Only a hex seed and a used bit mask are stored. Code i is
// hex(HMAC-SHA256(seed, decimal(i)))[:8] rendered as "xxxx-xxxx":
//
//	seed, _ := totp.GenerateRecoverySeed()
//	codes, _ := totp.DeriveRecoveryCodes(seed, 10)
//	idx := totp.MatchRecoveryCode(codes, totp.NormalizeRecoveryCode(input), usedMask)
//
// At most MaxRecoveryCodeCount codes exist per seed so the mask fits in an int64.
//
// # Encryption
//
// A Sealer encrypts secrets with AES-256-GCM and binds each value to its owner:
//
//	s, _ := totp.ParseSealer(os.Getenv("MFA_TOTP_ENCRYPTION_KEY"))
//	sealed, _ := s.Seal(secret, userID)
//	secret, _ = s.Open(sealed, userID)
//
// The cmd subdirectory prints a fresh key.
package totp
