package mfa

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/restauth/pkg/audit"
	"github.com/dmitrymomot/restauth/pkg/logger"
)

type options struct {
	log     *slog.Logger
	now     func() time.Time
	audit   *audit.Logger
	metrics Metrics
}

// Option configures the service and its components.
type Option func(*options)

// WithLogger sets the logger. The default discards.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClock replaces time.Now for TOTP steps, token timestamps and last_used_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithAuditLogger sends audit events to l. Without it events are dropped.
func WithAuditLogger(l *audit.Logger) Option {
	return func(o *options) { o.audit = l }
}

// WithMetrics records login, verification and enrollment outcomes.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		log:     logger.Discard(),
		now:     time.Now,
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
