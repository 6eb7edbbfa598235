package audit

import (
	"context"
	"errors"
)

// MultiStorage fans every event out to all of its sinks.
// A failing sink does not stop the others; their errors are joined.
type MultiStorage []Storage

func (m MultiStorage) Store(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Store(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiStorage) StoreBatch(ctx context.Context, events []Event) error {
	var errs []error
	for _, s := range m {
		if bs, ok := s.(BatchStorage); ok {
			if err := bs.StoreBatch(ctx, events); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, e := range events {
			if err := s.Store(ctx, e); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
