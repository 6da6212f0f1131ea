package repo

import (
	"context"

	"github.com/magicbot/magicbot/internal/biz/domain"
)

// EventSource opens the live receive stream
type EventSource interface {
	// Open starts the stream. An error here means the stream could not start.
	Open(ctx context.Context) (EventStream, error)
}

// EventStream is a running, cancellable sequence of parsed events
type EventStream interface {
	// Events yields events in delivery order; it is closed when the stream ends
	Events() <-chan *domain.Event

	// Wait blocks until the stream has ended and reports why.
	// It returns nil when the stream was cancelled through its context.
	Wait() error
}
