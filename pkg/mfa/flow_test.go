package mfa_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/logger"
	"github.com/dmitrymomot/restauth/pkg/mfa"
	"github.com/dmitrymomot/restauth/pkg/statemachine"
)

func TestLoginFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	def := mfa.LoginFlow(logger.Discard())

	tests := []struct {
		name   string
		events []mfa.FlowEvent
		want   mfa.FlowState
	}{
		{"plain login", []mfa.FlowEvent{mfa.EventPrimaryVerified, mfa.EventNoFactor}, mfa.StateAuthenticated},
		{"challenge", []mfa.FlowEvent{mfa.EventPrimaryVerified, mfa.EventFactorEnrolled}, mfa.StateChallengeIssued},
		{"second factor accepted", []mfa.FlowEvent{mfa.EventPrimaryVerified, mfa.EventFactorEnrolled, mfa.EventCodeAccepted}, mfa.StateAuthenticated},
		{"code rejected", []mfa.FlowEvent{mfa.EventPrimaryVerified, mfa.EventFactorEnrolled, mfa.EventCodeRejected}, mfa.StateRejected},
		{"restart", []mfa.FlowEvent{mfa.EventPrimaryVerified, mfa.EventFactorEnrolled, mfa.EventChallengeRejected, mfa.EventRestart}, mfa.StateAwaitingPrimary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := def.New()
			for _, e := range tt.events {
				require.NoError(t, m.Fire(ctx, e, nil))
			}
			assert.Equal(t, tt.want, m.Current())
			assert.Equal(t, tt.want == mfa.StateAuthenticated, m.Done())
		})
	}

	t.Run("invalid transitions", func(t *testing.T) {
		t.Parallel()

		m := def.New()
		err := m.Fire(ctx, mfa.EventCodeAccepted, nil)
		assert.True(t, statemachine.IsNoTransitionAvailableError(err))

		m = def.Restore(mfa.StateAuthenticated)
		assert.False(t, m.CanFire(ctx, mfa.EventRestart, nil))
	})
}
