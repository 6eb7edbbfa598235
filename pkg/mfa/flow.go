package mfa

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/restauth/pkg/logger"
	"github.com/dmitrymomot/restauth/pkg/statemachine"
)

// FlowState is a state of the login handshake.
type FlowState string

const (
	StateAwaitingPrimary FlowState = "awaiting_primary_credentials"
	StatePrimaryVerified FlowState = "primary_verified"
	StateChallengeIssued FlowState = "challenge_issued"
	StateAuthenticated   FlowState = "authenticated"
	StateRejected        FlowState = "rejected"
)

// FlowEvent moves a login between FlowStates.
type FlowEvent string

const (
	EventPrimaryVerified   FlowEvent = "primary_verified"
	EventNoFactor          FlowEvent = "no_factor"
	EventFactorEnrolled    FlowEvent = "factor_enrolled"
	EventCodeAccepted      FlowEvent = "code_accepted"
	EventChallengeRejected FlowEvent = "challenge_rejected"
	EventCodeRejected      FlowEvent = "code_rejected"
	EventRestart           FlowEvent = "restart"
)

// LoginFlow describes the handshake. Rejected is not terminal: the client
// starts over from the password step.
func LoginFlow(log *slog.Logger) *statemachine.Definition[FlowState, FlowEvent] {
	trace := statemachine.WithAction[FlowState, FlowEvent](func(ctx context.Context, from, to FlowState, event FlowEvent, _ any) error {
		log.DebugContext(ctx, "login flow transition",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			logger.Event(string(event)),
		)
		return nil
	})

	return statemachine.MustDefinition(StateAwaitingPrimary,
		statemachine.WithTransition(StateAwaitingPrimary, StatePrimaryVerified, EventPrimaryVerified, trace),
		statemachine.WithTransition(StatePrimaryVerified, StateAuthenticated, EventNoFactor, trace),
		statemachine.WithTransition(StatePrimaryVerified, StateChallengeIssued, EventFactorEnrolled, trace),
		statemachine.WithTransition(StateChallengeIssued, StateAuthenticated, EventCodeAccepted, trace),
		statemachine.WithTransition(StateChallengeIssued, StateRejected, EventChallengeRejected, trace),
		statemachine.WithTransition(StateChallengeIssued, StateRejected, EventCodeRejected, trace),
		statemachine.WithTransition(StateRejected, StateAwaitingPrimary, EventRestart, trace),
		statemachine.WithTerminal[FlowState, FlowEvent](StateAuthenticated),
	)
}
