package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/statemachine"
)

type state string

type event string

const (
	draft     state = "draft"
	inReview  state = "in_review"
	approved  state = "approved"
	published state = "published"
	rejected  state = "rejected"

	submit  event = "submit"
	approve event = "approve"
	reject  event = "reject"
	publish event = "publish"
)

func documentFlow(t *testing.T, opts ...statemachine.Option[state, event]) *statemachine.Definition[state, event] {
	t.Helper()
	base := []statemachine.Option[state, event]{
		statemachine.WithTransition[state, event](draft, inReview, submit),
		statemachine.WithTransition[state, event](inReview, approved, approve),
		statemachine.WithTransition[state, event](inReview, rejected, reject),
		statemachine.WithTransition[state, event](approved, published, publish),
	}
	d, err := statemachine.NewDefinition(draft, append(base, opts...)...)
	require.NoError(t, err)
	return d
}

func TestMachine_BasicTransitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := documentFlow(t).New()
	assert.Equal(t, draft, m.Current())

	assert.True(t, m.CanFire(ctx, submit, nil))
	assert.False(t, m.CanFire(ctx, approve, nil))

	require.NoError(t, m.Fire(ctx, submit, nil))
	require.NoError(t, m.Fire(ctx, approve, nil))
	require.NoError(t, m.Fire(ctx, publish, nil))

	assert.Equal(t, published, m.Current())
	assert.Equal(t, []state{draft, inReview, approved, published}, m.History())

	m.Reset()
	assert.Equal(t, draft, m.Current())
	assert.Equal(t, []state{draft}, m.History())
}

func TestMachine_NoTransition(t *testing.T) {
	t.Parallel()

	m := documentFlow(t).New()
	err := m.Fire(context.Background(), publish, nil)
	require.Error(t, err)
	assert.True(t, statemachine.IsNoTransitionAvailableError(err))
	assert.Contains(t, err.Error(), "draft")
	assert.Contains(t, err.Error(), "publish")
	assert.Equal(t, draft, m.Current())
}

func TestMachine_Guards(t *testing.T) {
	t.Parallel()

	allowed := func(_ context.Context, _ state, _ event, data any) bool {
		ok, _ := data.(bool)
		return ok
	}

	d, err := statemachine.NewDefinition(draft,
		statemachine.WithTransition(draft, inReview, submit, statemachine.WithGuard[state, event](allowed)),
	)
	require.NoError(t, err)

	ctx := context.Background()
	m := d.New()

	err = m.Fire(ctx, submit, false)
	assert.True(t, statemachine.IsTransitionRejectedError(err))
	assert.Equal(t, draft, m.Current())

	require.NoError(t, m.Fire(ctx, submit, true))
	assert.Equal(t, inReview, m.Current())
}

func TestMachine_GuardBranching(t *testing.T) {
	t.Parallel()

	isApproved := func(_ context.Context, _ state, _ event, data any) bool {
		return data == "yes"
	}
	d, err := statemachine.NewDefinition(inReview,
		statemachine.WithTransition(inReview, approved, submit, statemachine.WithGuard[state, event](isApproved)),
		statemachine.WithTransition[state, event](inReview, rejected, submit),
	)
	require.NoError(t, err)

	ctx := context.Background()

	yes := d.New()
	require.NoError(t, yes.Fire(ctx, submit, "yes"))
	assert.Equal(t, approved, yes.Current())

	no := d.New()
	require.NoError(t, no.Fire(ctx, submit, "no"))
	assert.Equal(t, rejected, no.Current())

	assert.Equal(t, []state{approved, rejected}, d.Targets(inReview, submit))
}

func TestMachine_ActionFailureKeepsState(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var calls []string
	d, err := statemachine.NewDefinition(draft,
		statemachine.WithTransition(draft, inReview, submit,
			statemachine.WithAction[state, event](func(_ context.Context, from, to state, ev event, _ any) error {
				calls = append(calls, string(from)+">"+string(to)+":"+string(ev))
				return nil
			}),
			statemachine.WithAction[state, event](func(context.Context, state, state, event, any) error {
				return boom
			}),
		),
	)
	require.NoError(t, err)

	m := d.New()
	err = m.Fire(context.Background(), submit, nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, draft, m.Current())
	assert.Equal(t, []string{"draft>in_review:submit"}, calls)
}

func TestDefinition_Terminal(t *testing.T) {
	t.Parallel()

	d := documentFlow(t, statemachine.WithTerminal[state, event](published, rejected))
	assert.True(t, d.IsTerminal(published))
	assert.False(t, d.IsTerminal(draft))

	m := d.Restore(rejected)
	assert.True(t, m.Done())

	_, err := statemachine.NewDefinition(draft,
		statemachine.WithTransition[state, event](draft, inReview, submit),
		statemachine.WithTerminal[state, event](draft),
	)
	assert.ErrorIs(t, err, statemachine.ErrTerminalState)

	_, err = statemachine.NewDefinition(draft,
		statemachine.WithTerminal[state, event](draft),
		statemachine.WithTransition[state, event](draft, inReview, submit),
	)
	assert.ErrorIs(t, err, statemachine.ErrTerminalState)

	assert.Panics(t, func() {
		statemachine.MustDefinition(draft,
			statemachine.WithTerminal[state, event](draft),
			statemachine.WithTransitions(statemachine.Transition[state, event]{From: draft, To: inReview, Event: submit}),
		)
	})
}

func TestDefinition_SharedAcrossMachines(t *testing.T) {
	t.Parallel()

	d := documentFlow(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := d.New()
			assert.NoError(t, m.Fire(ctx, submit, nil))
			assert.NoError(t, m.Fire(ctx, reject, nil))
			assert.Equal(t, rejected, m.Current())
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []event{approve, reject}, d.Events(inReview))
	assert.Equal(t, draft, d.Initial())
}
