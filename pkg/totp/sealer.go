package totp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// sealedPrefix versions the stored format so the cipher can change later.
const sealedPrefix = "v1."

// Sealer encrypts TOTP secrets at rest with AES-256-GCM. Each sealed value is
// bound to an owner, so a value copied onto another account fails to open.
//
// Sealed format: "v1." + base64url(nonce || ciphertext || tag).
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer from a raw 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidEncryptionKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// ParseSealer builds a Sealer from a key in the MFA_TOTP_ENCRYPTION_KEY format.
func ParseSealer(encodedKey string) (*Sealer, error) {
	key, err := DecodeEncryptionKey(encodedKey)
	if err != nil {
		return nil, err
	}
	return NewSealer(key)
}

// Seal encrypts secret for owner.
func (s *Sealer) Seal(secret, owner string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(secret), []byte(owner))
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal for the same owner.
func (s *Sealer) Open(sealed, owner string) (string, error) {
	payload, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", errors.Join(ErrFailedToDecryptSecret, ErrUnknownSealedFormat)
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}
	n := s.aead.NonceSize()
	if len(raw) < n+s.aead.Overhead() {
		return "", errors.Join(ErrFailedToDecryptSecret, ErrInvalidCipherTooShort)
	}
	plain, err := s.aead.Open(nil, raw[:n], raw[n:], []byte(owner))
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}
	return string(plain), nil
}

// NewEncryptionKey returns a random key encoded for MFA_TOTP_ENCRYPTION_KEY.
func NewEncryptionKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", errors.Join(ErrFailedToGenerateEncryptionKey, err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// DecodeEncryptionKey decodes a standard base64 key and checks its length.
func DecodeEncryptionKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, ErrEncryptionKeyNotSet
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, err)
	}
	if len(key) != KeySize {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, ErrInvalidEncryptionKeyLength)
	}
	return key, nil
}
