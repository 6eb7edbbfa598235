package audit

import (
	"context"
	"slices"
	"sync"
)

// Filter selects events from MemoryStorage. Empty fields match everything.
type Filter struct {
	Action string
	UserID string
	Result Result
}

func (f Filter) match(e Event) bool {
	return (f.Action == "" || f.Action == e.Action) &&
		(f.UserID == "" || f.UserID == e.UserID) &&
		(f.Result == "" || f.Result == e.Result)
}

// MemoryStorage keeps events in process memory. Used by tests and local runs.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(ctx context.Context, event Event) error {
	return s.StoreBatch(ctx, []Event{event})
}

func (s *MemoryStorage) StoreBatch(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Events returns a copy of everything stored, oldest first.
func (s *MemoryStorage) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// Find returns stored events matching f, oldest first.
func (s *MemoryStorage) Find(f Filter) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemoryStorage) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
