package statemachine

import "fmt"

// Option configures a Definition during construction.
type Option[S, E comparable] func(*Definition[S, E]) error

// TransitionOption configures a single transition with guards and actions.
type TransitionOption[S, E comparable] func(*Transition[S, E])

// NewDefinition builds a transition table starting at initial.
func NewDefinition[S, E comparable](initial S, opts ...Option[S, E]) (*Definition[S, E], error) {
	d := &Definition[S, E]{
		initial:     initial,
		transitions: make(map[S]map[E][]Transition[S, E]),
		terminal:    make(map[S]bool),
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// MustDefinition is NewDefinition that panics on error, for package-level tables.
func MustDefinition[S, E comparable](initial S, opts ...Option[S, E]) *Definition[S, E] {
	d, err := NewDefinition(initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine definition: %v", err))
	}
	return d
}

// WithTransition adds a single transition.
func WithTransition[S, E comparable](from, to S, event E, opts ...TransitionOption[S, E]) Option[S, E] {
	return func(d *Definition[S, E]) error {
		if d.terminal[from] {
			return fmt.Errorf("%w: %v", ErrTerminalState, from)
		}
		t := Transition[S, E]{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		d.add(t)
		return nil
	}
}

// WithTransitions adds several prepared transitions at once.
func WithTransitions[S, E comparable](transitions ...Transition[S, E]) Option[S, E] {
	return func(d *Definition[S, E]) error {
		for i, t := range transitions {
			if d.terminal[t.From] {
				return fmt.Errorf("failed to add transition[%d] %v->%v on %v: %w: %v",
					i, t.From, t.To, t.Event, ErrTerminalState, t.From)
			}
			d.add(t)
		}
		return nil
	}
}

// WithTerminal marks states that have no outgoing transitions.
// It fails when a transition out of one of them was already declared.
func WithTerminal[S, E comparable](states ...S) Option[S, E] {
	return func(d *Definition[S, E]) error {
		for _, s := range states {
			if len(d.transitions[s]) > 0 {
				return fmt.Errorf("%w: %v", ErrTerminalState, s)
			}
			d.terminal[s] = true
		}
		return nil
	}
}

// WithGuard adds a guard to a transition.
func WithGuard[S, E comparable](guard Guard[S, E]) TransitionOption[S, E] {
	return func(t *Transition[S, E]) {
		if guard != nil {
			t.Guards = append(t.Guards, guard)
		}
	}
}

// WithAction adds an action to a transition.
func WithAction[S, E comparable](action Action[S, E]) TransitionOption[S, E] {
	return func(t *Transition[S, E]) {
		if action != nil {
			t.Actions = append(t.Actions, action)
		}
	}
}
