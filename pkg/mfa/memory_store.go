package mfa

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/restauth/pkg/totp"
)

type memoryKey struct {
	userID string
	typ    FactorType
}

// MemoryStore keeps authenticators in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[memoryKey]*Authenticator
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[memoryKey]*Authenticator)}
}

func (s *MemoryStore) Get(_ context.Context, userID string, t FactorType) (*Authenticator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.records[memoryKey{userID, t}]
	if !ok {
		return nil, ErrAuthenticatorNotFound
	}
	return a.Clone(), nil
}

func (s *MemoryStore) Insert(_ context.Context, a *Authenticator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey{a.UserID, a.Type}
	if _, ok := s.records[key]; ok {
		return ErrAuthenticatorExists
	}
	s.records[key] = a.Clone()
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, a *Authenticator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[memoryKey{a.UserID, a.Type}] = a.Clone()
	return nil
}

func (s *MemoryStore) Touch(_ context.Context, userID string, t FactorType, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.records[memoryKey{userID, t}]
	if !ok {
		return ErrAuthenticatorNotFound
	}
	a.LastUsedAt = &at
	return nil
}

func (s *MemoryStore) ConsumeRecoveryCode(_ context.Context, userID, seed string, index int, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.records[memoryKey{userID, FactorRecoveryCodes}]
	if !ok || a.Data.Seed != seed || totp.IsRecoveryCodeUsed(a.Data.UsedMask, index) {
		return false, nil
	}
	a.Data.UsedMask = totp.MarkRecoveryCodeUsed(a.Data.UsedMask, index)
	a.LastUsedAt = &at
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string, types ...FactorType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range FactorsOrAll(types) {
		delete(s.records, memoryKey{userID, t})
	}
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
