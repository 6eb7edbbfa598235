package auth

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStorage keeps users and password hashes in process memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]User
	byEmail map[string]uuid.UUID
	hashes  map[uuid.UUID][]byte
}

// NewMemoryStorage returns an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:   make(map[uuid.UUID]User),
		byEmail: make(map[string]uuid.UUID),
		hashes:  make(map[uuid.UUID][]byte),
	}
}

func (m *MemoryStorage) CreateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[user.Email]; ok {
		return ErrUserAlreadyExists
	}
	if _, ok := m.users[user.ID]; ok {
		return ErrUserAlreadyExists
	}
	m.users[user.ID] = *user
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *MemoryStorage) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *MemoryStorage) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := m.users[id]
	return &u, nil
}

// UpdateUser replaces the stored record. The email index is not touched.
func (m *MemoryStorage) UpdateUser(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	updated := *user
	updated.Email = current.Email
	m.users[user.ID] = updated
	return nil
}

func (m *MemoryStorage) DeleteUser(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(m.users, id)
	delete(m.byEmail, u.Email)
	delete(m.hashes, id)
	return nil
}

func (m *MemoryStorage) StorePasswordHash(_ context.Context, userID uuid.UUID, hash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return ErrUserNotFound
	}
	m.hashes[userID] = append([]byte(nil), hash...)
	return nil
}

func (m *MemoryStorage) GetPasswordHash(_ context.Context, userID uuid.UUID) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hash, ok := m.hashes[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return hash, nil
}
