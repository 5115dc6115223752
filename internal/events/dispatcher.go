package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher routes request events to their subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type inMemoryDispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

// NewInMemoryDispatcher returns a dispatcher that runs handlers on the
// publisher's goroutine.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{handlers: make(map[EventType][]EventHandler)}
}

// Publish runs every handler of event.Type in subscription order. A failing
// handler does not stop the others; their errors are joined and tagged with
// the event. Handlers not yet started are skipped once ctx is done.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler(nil), d.handlers[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for i, handle := range handlers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %d handlers skipped: %w", event.Type, event.ID, len(handlers)-i, err))
			break
		}
		if err := handle(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", event.Type, event.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe appends handler to the subscribers of eventType.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}
