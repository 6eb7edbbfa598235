package jwt

import (
	"net/http"
	"strings"
)

// TokenExtractorFunc defines a function that extracts a token from an HTTP request.
type TokenExtractorFunc func(r *http.Request) (string, error)

// SchemeTokenExtractor reads "Authorization: <scheme> <token>". The scheme match is case-insensitive.
func SchemeTokenExtractor(scheme string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			return "", ErrInvalidToken
		}

		prefix, token, ok := strings.Cut(authHeader, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(prefix, scheme) || token == "" {
			return "", ErrInvalidToken
		}
		return token, nil
	}
}

// BearerTokenExtractor extracts JWT tokens from "Authorization: Bearer <token>" headers.
func BearerTokenExtractor(r *http.Request) (string, error) {
	return SchemeTokenExtractor("Bearer")(r)
}

// CookieTokenExtractor creates a token extractor for cookie-based JWT transport.
func CookieTokenExtractor(cookieName string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if err != nil || cookie.Value == "" {
			return "", ErrInvalidToken
		}
		return cookie.Value, nil
	}
}

// FirstOf tries each extractor in order and returns the first token found.
func FirstOf(extractors ...TokenExtractorFunc) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		for _, extract := range extractors {
			if token, err := extract(r); err == nil {
				return token, nil
			}
		}
		return "", ErrInvalidToken
	}
}
