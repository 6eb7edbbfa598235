package audit

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logger builds audit events from the request context and hands them to a Storage.
type Logger struct {
	storage            Storage
	userIDExtractor    ContextExtractor
	requestIDExtractor ContextExtractor
	ipExtractor        ContextExtractor
	userAgentExtractor ContextExtractor
	now                func() time.Time
}

// NewLogger creates a new audit logger
func NewLogger(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &Logger{
		storage: storage,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Log records a successful action
func (l *Logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	event := l.newEvent(ctx, action, ResultSuccess)
	return l.store(ctx, event, opts)
}

// LogError records a failed action. A nil err is recorded as a plain failure.
func (l *Logger) LogError(ctx context.Context, action string, err error, opts ...EventOption) error {
	event := l.newEvent(ctx, action, ResultFailure)
	if err != nil {
		event.Result = ResultError
		event.Error = err.Error()
	}
	return l.store(ctx, event, opts)
}

func (l *Logger) store(ctx context.Context, event Event, opts []EventOption) error {
	for _, opt := range opts {
		opt(&event)
	}

	if err := event.Validate(); err != nil {
		return err
	}

	return l.storage.Store(ctx, event)
}

func (l *Logger) newEvent(ctx context.Context, action string, result Result) Event {
	now := l.now()
	event := Event{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Action:    action,
		Result:    result,
		CreatedAt: now,
	}

	event.UserID = extract(ctx, l.userIDExtractor)
	event.RequestID = extract(ctx, l.requestIDExtractor)
	event.IP = extract(ctx, l.ipExtractor)
	event.UserAgent = extract(ctx, l.userAgentExtractor)

	return event
}

func extract(ctx context.Context, fn ContextExtractor) string {
	if fn == nil || ctx == nil {
		return ""
	}
	if v, ok := fn(ctx); ok {
		return v
	}
	return ""
}
