package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Listener receives every event published after subscription.
type Listener interface {
	HandleEvent(ctx context.Context, event PipelineEvent) error
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(ctx context.Context, event PipelineEvent) error

// HandleEvent calls f.
func (f ListenerFunc) HandleEvent(ctx context.Context, event PipelineEvent) error {
	return f(ctx, event)
}

// Bus is a process-local fan-out for pipeline events. Dispatch is
// sequential in subscription order; a failing listener is logged and
// skipped so it can never starve the others or the publisher.
type Bus struct {
	mu        sync.RWMutex
	listeners []Listener
	logger    *slog.Logger
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		logger: slog.Default().With("component", "event-bus"),
	}
}

// Subscribe registers a listener for all subsequently published events.
func (b *Bus) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Publish dispatches the event to every registered listener in
// subscription order. Listener errors and panics are logged and swallowed.
func (b *Bus) Publish(ctx context.Context, event PipelineEvent) {
	b.mu.RLock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		b.dispatch(ctx, l, event)
	}
}

func (b *Bus) dispatch(ctx context.Context, l Listener, event PipelineEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event listener panicked",
				"event", event.Name,
				"run_id", event.RunID,
				"panic", fmt.Sprint(r))
		}
	}()

	if err := l.HandleEvent(ctx, event); err != nil {
		b.logger.Warn("Event listener failed",
			"event", event.Name,
			"run_id", event.RunID,
			"error", err)
	}
}
