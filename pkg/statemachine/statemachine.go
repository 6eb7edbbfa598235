package statemachine

import "context"

// Action executes side effects during a transition. Returning an error prevents the transition.
type Action[S, E comparable] func(ctx context.Context, from, to S, event E, data any) error

// Guard decides at runtime whether a transition may proceed.
type Guard[S, E comparable] func(ctx context.Context, from S, event E, data any) bool

// Transition defines a state change triggered by an event, with optional guards and actions.
type Transition[S, E comparable] struct {
	From    S
	To      S
	Event   E
	Guards  []Guard[S, E]  // All must pass for transition to proceed
	Actions []Action[S, E] // Executed in order before state change
}

// Definition is an immutable transition table. It is safe to share between goroutines;
// each flow gets its own Machine from New or Restore.
type Definition[S, E comparable] struct {
	initial     S
	transitions map[S]map[E][]Transition[S, E]
	terminal    map[S]bool
}

// Initial returns the state new machines start in.
func (d *Definition[S, E]) Initial() S {
	return d.initial
}

// IsTerminal reports whether state was declared terminal with WithTerminal.
func (d *Definition[S, E]) IsTerminal(state S) bool {
	return d.terminal[state]
}

// Targets returns the destinations reachable from state by event, in declaration order.
func (d *Definition[S, E]) Targets(from S, event E) []S {
	ts := d.transitions[from][event]
	out := make([]S, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.To)
	}
	return out
}

// Events returns the events with at least one transition out of state.
func (d *Definition[S, E]) Events(from S) []E {
	out := make([]E, 0, len(d.transitions[from]))
	for e := range d.transitions[from] {
		out = append(out, e)
	}
	return out
}

// New returns a machine positioned at the initial state.
func (d *Definition[S, E]) New() *Machine[S, E] {
	return d.Restore(d.initial)
}

// Restore returns a machine positioned at state, e.g. one recovered from a signed token.
func (d *Definition[S, E]) Restore(state S) *Machine[S, E] {
	return &Machine[S, E]{def: d, current: state, history: []S{state}}
}

func (d *Definition[S, E]) add(t Transition[S, E]) {
	if _, ok := d.transitions[t.From]; !ok {
		d.transitions[t.From] = make(map[E][]Transition[S, E])
	}
	// Several transitions for one from/event pair branch on their guards, first match wins.
	d.transitions[t.From][t.Event] = append(d.transitions[t.From][t.Event], t)
}

func (d *Definition[S, E]) match(ctx context.Context, from S, event E, data any) (*Transition[S, E], error) {
	ts, ok := d.transitions[from][event]
	if !ok || len(ts) == 0 {
		return nil, NewErrNoTransitionAvailable(from, event)
	}

	for i := range ts {
		passed := true
		for _, guard := range ts[i].Guards {
			if guard != nil && !guard(ctx, from, event, data) {
				passed = false
				break
			}
		}
		if passed {
			return &ts[i], nil
		}
	}

	return nil, NewErrTransitionRejected(from, event)
}
