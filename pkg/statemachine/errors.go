package statemachine

import (
	"errors"
	"fmt"
)

var ErrTerminalState = errors.New("terminal state has outgoing transitions")

// ErrNoTransitionAvailable indicates no valid transition exists for the given state/event combination.
type ErrNoTransitionAvailable struct {
	StateName string
	EventName string
}

func (e *ErrNoTransitionAvailable) Error() string {
	return fmt.Sprintf("no transition available from state '%s' for event '%s'", e.StateName, e.EventName)
}

func NewErrNoTransitionAvailable(state, event any) *ErrNoTransitionAvailable {
	return &ErrNoTransitionAvailable{
		StateName: fmt.Sprint(state),
		EventName: fmt.Sprint(event),
	}
}

// ErrTransitionRejected indicates all possible transitions were blocked by guard functions.
type ErrTransitionRejected struct {
	StateName string
	EventName string
}

func (e *ErrTransitionRejected) Error() string {
	return fmt.Sprintf("transition from state '%s' for event '%s' was rejected by guards", e.StateName, e.EventName)
}

func NewErrTransitionRejected(state, event any) *ErrTransitionRejected {
	return &ErrTransitionRejected{
		StateName: fmt.Sprint(state),
		EventName: fmt.Sprint(event),
	}
}

func IsNoTransitionAvailableError(err error) bool {
	var e *ErrNoTransitionAvailable
	return errors.As(err, &e)
}

func IsTransitionRejectedError(err error) bool {
	var e *ErrTransitionRejected
	return errors.As(err, &e)
}
