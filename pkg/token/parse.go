package token

import (
	"crypto/hmac"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

// ParseToken verifies the token's signature and decodes the JSON payload into the generic type.
func ParseToken[T any](token string, key []byte) (T, error) {
	var payload T
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return payload, ErrInvalidToken
	}

	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return payload, errors.Join(ErrInvalidToken, err)
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return payload, errors.Join(ErrInvalidToken, err)
	}

	if !hmac.Equal(sig, sign(data, key)) {
		return payload, ErrSignatureInvalid
	}

	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, errors.Join(ErrInvalidToken, err)
	}

	return payload, nil
}
