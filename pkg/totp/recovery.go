package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

const (
	// RecoverySeedSize is the number of random bytes behind a recovery seed.
	RecoverySeedSize = 32
	// MaxRecoveryCodeCount keeps the used mask within a signed 64-bit integer.
	MaxRecoveryCodeCount = 63
)

// RecoveryCodePattern matches a normalized recovery code.
var RecoveryCodePattern = regexp.MustCompile(`^[0-9a-f]{4}-[0-9a-f]{4}$`)

// GenerateRecoverySeed returns 32 random bytes encoded as lowercase hex.
func GenerateRecoverySeed() (string, error) {
	seed := make([]byte, RecoverySeedSize)
	if _, err := rand.Read(seed); err != nil {
		return "", errors.Join(ErrFailedToGenerateRecoverySeed, err)
	}
	return hex.EncodeToString(seed), nil
}

// DeriveRecoveryCode computes the code at index from the seed.
// The code is the first 8 hex characters of HMAC-SHA256(seed, decimal(index)) split by a dash.
func DeriveRecoveryCode(seed string, index int) (string, error) {
	if index < 0 || index >= MaxRecoveryCodeCount {
		return "", ErrInvalidRecoveryCodeIndex
	}
	key, err := hex.DecodeString(seed)
	if err != nil || len(key) == 0 {
		return "", ErrInvalidRecoverySeed
	}
	return deriveCode(key, index), nil
}

// DeriveRecoveryCodes returns count codes in index order.
func DeriveRecoveryCodes(seed string, count int) ([]string, error) {
	if count < 1 || count > MaxRecoveryCodeCount {
		return nil, ErrInvalidRecoveryCodeCount
	}
	key, err := hex.DecodeString(seed)
	if err != nil || len(key) == 0 {
		return nil, ErrInvalidRecoverySeed
	}

	codes := make([]string, count)
	for i := range count {
		codes[i] = deriveCode(key, i)
	}
	return codes, nil
}

func deriveCode(key []byte, index int) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(strconv.Itoa(index)))
	digest := hex.EncodeToString(mac.Sum(nil))
	return digest[:4] + "-" + digest[4:8]
}

// NormalizeRecoveryCode trims surrounding whitespace and lower-cases the code.
func NormalizeRecoveryCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// MatchRecoveryCode returns the index of the unused code equal to code, or -1.
// All codes are compared regardless of an earlier hit.
func MatchRecoveryCode(codes []string, code string, usedMask int64) int {
	found := -1
	for i, candidate := range codes {
		eq := subtle.ConstantTimeCompare([]byte(candidate), []byte(code))
		unused := 0
		if !IsRecoveryCodeUsed(usedMask, i) {
			unused = 1
		}
		if eq&unused == 1 && found < 0 {
			found = i
		}
	}
	return found
}

// UnusedRecoveryCodes filters out codes whose bit is set in usedMask.
func UnusedRecoveryCodes(codes []string, usedMask int64) []string {
	unused := make([]string, 0, len(codes))
	for i, code := range codes {
		if !IsRecoveryCodeUsed(usedMask, i) {
			unused = append(unused, code)
		}
	}
	return unused
}

// IsRecoveryCodeUsed reports whether bit index is set.
func IsRecoveryCodeUsed(usedMask int64, index int) bool {
	return usedMask&RecoveryCodeBit(index) != 0
}

// MarkRecoveryCodeUsed returns usedMask with bit index set.
func MarkRecoveryCodeUsed(usedMask int64, index int) int64 {
	return usedMask | RecoveryCodeBit(index)
}

// RecoveryCodeBit returns the mask bit for index.
func RecoveryCodeBit(index int) int64 {
	return int64(1) << uint(index)
}
