// Package statemachine implements a small, typed finite state machine.
//
// A Definition is the immutable transition table: states and events are any
// comparable types, usually string-based enums. Each Definition hands out Machine
// instances that track the current state of one flow, which lets a package declare
// its table once and run many concurrent flows against it.
//
//	type State string
//	type Event string
//
//	var flow = statemachine.MustDefinition[State, Event]("draft",
//	    statemachine.WithTransition[State, Event]("draft", "review", "submit"),
//	    statemachine.WithTransition[State, Event]("review", "published", "approve",
//	        statemachine.WithGuard(func(ctx context.Context, from State, ev Event, data any) bool {
//	            return data.(bool)
//	        }),
//	    ),
//	    statemachine.WithTerminal[State, Event]("published"),
//	)
//
//	m := flow.New()
//	err := m.Fire(ctx, "submit", nil)
//
// When several transitions share a from/event pair the first one whose guards all
// pass wins. Actions run before the state changes; an action error aborts the
// transition and leaves the machine where it was. Restore positions a machine at a
// known state, for flows whose progress is carried between requests.
//
// IsNoTransitionAvailableError and IsTransitionRejectedError tell an undefined
// transition apart from one refused by its guards.
package statemachine
