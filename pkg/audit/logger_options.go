package audit

import (
	"context"
	"time"
)

// ContextExtractor pulls a string value out of the request context.
type ContextExtractor func(context.Context) (string, bool)

// Option configures Logger behavior during initialization
type Option func(*Logger)

func WithUserIDExtractor(fn ContextExtractor) Option {
	return func(l *Logger) {
		l.userIDExtractor = fn
	}
}

func WithRequestIDExtractor(fn ContextExtractor) Option {
	return func(l *Logger) {
		l.requestIDExtractor = fn
	}
}

func WithIPExtractor(fn ContextExtractor) Option {
	return func(l *Logger) {
		l.ipExtractor = fn
	}
}

func WithUserAgentExtractor(fn ContextExtractor) Option {
	return func(l *Logger) {
		l.userAgentExtractor = fn
	}
}

// WithClock overrides the time source used for CreatedAt and event ids.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}
