package credential

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"

	"github.com/dmitrymomot/restauth/pkg/jwt"
)

const tokenKeySize = 20

// TokenStore keeps one API key per user.
type TokenStore interface {
	// GetOrCreate returns the user's key, storing newKey first if the user has none.
	GetOrCreate(ctx context.Context, userID, newKey string) (string, error)
	// Lookup returns the owner of key or ErrTokenNotFound.
	Lookup(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, userID string) error
}

// OpaqueIssuer hands out per-user API keys ("Authorization: Token <key>").
type OpaqueIssuer struct {
	store TokenStore
}

// NewOpaqueIssuer issues one API key per user from store.
func NewOpaqueIssuer(store TokenStore) *OpaqueIssuer {
	return &OpaqueIssuer{store: store}
}

// Issue returns the existing key of the user or creates one on first login.
func (i *OpaqueIssuer) Issue(ctx context.Context, userID string) (Result, error) {
	candidate, err := generateKey()
	if err != nil {
		return nil, err
	}
	key, err := i.store.GetOrCreate(ctx, userID, candidate)
	if err != nil {
		return nil, err
	}
	return OpaqueToken{Key: key}, nil
}

// Revoke deletes the user's key. The next login creates a new one.
func (i *OpaqueIssuer) Revoke(ctx context.Context, userID string) error {
	return i.store.Delete(ctx, userID)
}

// Authenticate resolves the "Token <key>" Authorization header.
func (i *OpaqueIssuer) Authenticate(r *http.Request) (string, error) {
	key, err := jwt.SchemeTokenExtractor("Token")(r)
	if err != nil {
		return "", ErrUnauthenticated
	}
	userID, err := i.store.Lookup(r.Context(), key)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", ErrUnauthenticated
		}
		return "", err
	}
	return userID, nil
}

func generateKey() (string, error) {
	b := make([]byte, tokenKeySize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MemoryTokenStore is a TokenStore for a single process.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	byUser map[string]string
	byKey  map[string]string
}

// NewMemoryTokenStore returns an empty store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		byUser: make(map[string]string),
		byKey:  make(map[string]string),
	}
}

func (s *MemoryTokenStore) GetOrCreate(_ context.Context, userID, newKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.byUser[userID]; ok {
		return key, nil
	}
	s.byUser[userID] = newKey
	s.byKey[newKey] = userID
	return newKey, nil
}

func (s *MemoryTokenStore) Lookup(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byKey[key]
	if !ok {
		return "", ErrTokenNotFound
	}
	return userID, nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.byUser[userID]; ok {
		delete(s.byKey, key)
		delete(s.byUser, userID)
	}
	return nil
}
