package audit

import (
	"context"
	"fmt"
	"time"
)

// Result represents the outcome of an audited action
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultError   Result = "error"
)

// Event represents a single audit log entry
type Event struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	UserID    string         `json:"user_id,omitempty"`
	Result    Result         `json:"result"`
	Error     string         `json:"error,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Validate checks if the event has all required fields
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	return nil
}

// EventOption applies configuration to an Event during creation.
type EventOption func(*Event)

// Storage persists audit events.
type Storage interface {
	Store(ctx context.Context, event Event) error
}

// BatchStorage can write several events in one round trip.
type BatchStorage interface {
	Storage
	StoreBatch(ctx context.Context, events []Event) error
}
