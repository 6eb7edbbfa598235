package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// Machine is one running instance of a Definition.
type Machine[S, E comparable] struct {
	def     *Definition[S, E]
	mu      sync.RWMutex
	current S
	history []S
}

func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// History returns every state the machine has been in, oldest first.
func (m *Machine[S, E]) History() []S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]S, len(m.history))
	copy(out, m.history)
	return out
}

// Fire applies event. Actions run before the state changes and any action error aborts the transition.
func (m *Machine[S, E]) Fire(ctx context.Context, event E, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.def.match(ctx, m.current, event, data)
	if err != nil {
		return err
	}

	for _, action := range t.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, m.current, t.To, event, data); err != nil {
			return fmt.Errorf("action failed: %w", err)
		}
	}

	m.current = t.To
	m.history = append(m.history, t.To)
	return nil
}

func (m *Machine[S, E]) CanFire(ctx context.Context, event E, data any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.def.match(ctx, m.current, event, data)
	return err == nil
}

// Done reports whether the machine sits in a terminal state.
func (m *Machine[S, E]) Done() bool {
	return m.def.IsTerminal(m.Current())
}

func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.def.initial
	m.history = []S{m.def.initial}
}
