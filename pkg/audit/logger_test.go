package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/audit"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Store(ctx context.Context, event audit.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type ctxKey string

func fromCtx(key ctxKey) audit.ContextExtractor {
	return func(ctx context.Context) (string, bool) {
		v, ok := ctx.Value(key).(string)
		return v, ok
	}
}

func TestNewLogger_PanicsWithoutStorage(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { audit.NewLogger(nil) })
}

func TestLogger_Log(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := audit.NewMemoryStorage()
	l := audit.NewLogger(store,
		audit.WithClock(func() time.Time { return now }),
		audit.WithUserIDExtractor(fromCtx("uid")),
		audit.WithRequestIDExtractor(fromCtx("rid")),
		audit.WithIPExtractor(fromCtx("ip")),
		audit.WithUserAgentExtractor(fromCtx("ua")),
	)

	ctx := context.Background()
	ctx = context.WithValue(ctx, ctxKey("uid"), "from-context")
	ctx = context.WithValue(ctx, ctxKey("rid"), "req-1")
	ctx = context.WithValue(ctx, ctxKey("ip"), "10.0.0.1")
	ctx = context.WithValue(ctx, ctxKey("ua"), "curl/8")

	require.NoError(t, l.Log(ctx, "mfa.activated",
		audit.WithUserID("42"),
		audit.WithMetadata("recovery_codes_count", 10),
	))

	events := store.Events()
	require.Len(t, events, 1)
	e := events[0]

	id, err := ulid.Parse(e.ID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), id.Time())

	assert.Equal(t, "mfa.activated", e.Action)
	assert.Equal(t, audit.ResultSuccess, e.Result)
	assert.Equal(t, "42", e.UserID)
	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, "10.0.0.1", e.IP)
	assert.Equal(t, "curl/8", e.UserAgent)
	assert.Equal(t, 10, e.Metadata["recovery_codes_count"])
	assert.Equal(t, now, e.CreatedAt)
}

func TestLogger_LogError(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStorage()
	l := audit.NewLogger(store)
	ctx := context.Background()

	require.NoError(t, l.LogError(ctx, "mfa.verify_failed", nil,
		audit.WithUserID("42"), audit.WithMetadata("reason", "invalid_code")))
	require.NoError(t, l.LogError(ctx, "mfa.verify_failed", errors.New("db down")))

	events := store.Events()
	require.Len(t, events, 2)
	assert.Equal(t, audit.ResultFailure, events[0].Result)
	assert.Empty(t, events[0].Error)
	assert.Equal(t, "invalid_code", events[0].Metadata["reason"])
	assert.Equal(t, audit.ResultError, events[1].Result)
	assert.Equal(t, "db down", events[1].Error)
	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestLogger_Validation(t *testing.T) {
	t.Parallel()

	m := &mockStorage{}
	l := audit.NewLogger(m)

	err := l.Log(context.Background(), "")
	assert.ErrorIs(t, err, audit.ErrEventValidation)
	m.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
}

func TestLogger_StorageError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	m := &mockStorage{}
	m.On("Store", mock.Anything, mock.MatchedBy(func(e audit.Event) bool {
		return e.Action == "mfa.deactivated" && e.UserID == "7"
	})).Return(boom).Once()

	l := audit.NewLogger(m)
	err := l.Log(context.Background(), "mfa.deactivated", audit.WithUserID("7"))
	assert.ErrorIs(t, err, boom)
	m.AssertExpectations(t)
}

func TestEvent_WithResult(t *testing.T) {
	t.Parallel()

	store := audit.NewMemoryStorage()
	l := audit.NewLogger(store)
	require.NoError(t, l.Log(context.Background(), "x", audit.WithResult(audit.ResultFailure)))
	assert.Equal(t, audit.ResultFailure, store.Events()[0].Result)
}
