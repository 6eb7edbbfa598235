// Package jwt issues and verifies HS256 JSON Web Tokens on top of
// github.com/golang-jwt/jwt/v5.
//
// Service signs any jwt.Claims value and pins verification to HS256, so tokens
// using another algorithm, "none" included, are rejected with
// ErrUnexpectedSigningMethod. Issue and Verify cover the access/refresh pair used
// for API credentials: each token carries a token_type claim and Verify refuses a
// refresh token where an access token is expected.
//
//	svc, err := jwt.NewFromString(secret, jwt.WithIssuer("restauth"))
//	access, exp, err := svc.Issue(userID, jwt.AccessToken, 15*time.Minute)
//	claims, err := svc.Verify(access, jwt.AccessToken)
//
// The extractors read tokens from the Authorization header or a cookie.
//
// Errors are sentinel values (ErrExpiredToken, ErrInvalidSignature, ...) that
// can be compared with errors.Is.
package jwt
