package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// AsyncOptions configures batching and buffering.
type AsyncOptions struct {
	BufferSize     int           // Max events queued in memory before writes fall through synchronously
	BatchSize      int           // Events per batch write
	BatchTimeout   time.Duration // Max time a partial batch waits
	StorageTimeout time.Duration // Per-batch storage timeout
	Logger         *slog.Logger  // Receives batch write failures
}

// AsyncStorage queues events and writes them to the next storage in batches
// from a single background goroutine. Store never waits for the batch write.
type AsyncStorage struct {
	next    BatchStorage
	events  chan Event
	done    chan struct{}
	options AsyncOptions

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncStorage starts the background writer. Call Close on shutdown to flush.
func NewAsyncStorage(next BatchStorage, opts AsyncOptions) *AsyncStorage {
	if next == nil {
		panic("audit: batch storage cannot be nil")
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 100 * time.Millisecond
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &AsyncStorage{
		next:    next,
		events:  make(chan Event, opts.BufferSize),
		done:    make(chan struct{}),
		options: opts,
	}

	s.wg.Add(1)
	go s.worker()

	return s
}

// Store enqueues the event. When the buffer is full the event is written synchronously
// so it is not lost.
func (s *AsyncStorage) Store(ctx context.Context, event Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStorageNotAvailable
	}

	select {
	case s.events <- event:
		return nil
	default:
		if err := s.next.Store(ctx, event); err != nil {
			return errors.Join(ErrBufferFull, err)
		}
		return nil
	}
}

func (s *AsyncStorage) worker() {
	defer s.wg.Done()

	batch := make([]Event, 0, s.options.BatchSize)
	ticker := time.NewTicker(s.options.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		// Detached from request contexts; the caller has already returned.
		ctx, cancel := context.WithTimeout(context.Background(), s.options.StorageTimeout)
		defer cancel()

		if err := s.next.StoreBatch(ctx, batch); err != nil {
			s.options.Logger.ErrorContext(ctx, "audit batch write failed",
				slog.Int("events", len(batch)),
				slog.Any("error", err),
			)
		}

		clear(batch)
		batch = batch[:0]
	}

	for {
		select {
		case e := <-s.events:
			batch = append(batch, e)
			if len(batch) >= s.options.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-s.done:
			for {
				select {
				case e := <-s.events:
					batch = append(batch, e)
					if len(batch) >= s.options.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting events and waits until queued ones are written or ctx expires.
func (s *AsyncStorage) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
