package audit

import (
	"context"
	"log/slog"
)

// SlogStorage writes each event as one structured log record: info for
// successes, warn for everything else.
type SlogStorage struct {
	log *slog.Logger
}

func NewSlogStorage(log *slog.Logger) *SlogStorage {
	if log == nil {
		log = slog.Default()
	}
	return &SlogStorage{log: log.With(slog.String("component", "audit"))}
}

func (s *SlogStorage) Store(ctx context.Context, event Event) error {
	attrs := []slog.Attr{
		slog.String("event_id", event.ID),
		slog.String("action", event.Action),
		slog.String("result", string(event.Result)),
		slog.Time("created_at", event.CreatedAt),
	}
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.IP != "" {
		attrs = append(attrs, slog.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if len(event.Metadata) > 0 {
		meta := make([]any, 0, len(event.Metadata))
		for k, v := range event.Metadata {
			meta = append(meta, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", meta...))
	}

	level := slog.LevelInfo
	if event.Result != ResultSuccess {
		level = slog.LevelWarn
	}
	s.log.LogAttrs(ctx, level, "audit event", attrs...)
	return nil
}

func (s *SlogStorage) StoreBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		if err := s.Store(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
