package services

import (
	"sync"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Ensure EventBus implements the interface.
var _ driven.EventPublisher = (*EventBus)(nil)

// EventHandler consumes published events.
type EventHandler func(domain.Event)

// EventBus delivers events to subscribers on a background goroutine.
// Publish never blocks: when the buffer is full the event is dropped.
type EventBus struct {
	events chan domain.Event
	done   chan struct{}
	wg     sync.WaitGroup

	mu       sync.RWMutex
	handlers []EventHandler
	closed   bool
}

// NewEventBus creates a bus with the given buffer size and starts it.
func NewEventBus(buffer int) *EventBus {
	if buffer <= 0 {
		buffer = 256
	}
	b := &EventBus{
		events: make(chan domain.Event, buffer),
		done:   make(chan struct{}),
	}
	b.wg.Add(1)
	go b.dispatch()
	return b
}

// Subscribe registers a handler for every event.
func (b *EventBus) Subscribe(h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish enqueues an event.
func (b *EventBus) Publish(event domain.Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.events <- event:
	default:
		logger.Warn("event bus full, dropping %s", event.Name)
	}
}

// Close stops accepting events and waits until queued ones are delivered.
func (b *EventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *EventBus) dispatch() {
	defer b.wg.Done()
	for event := range b.events {
		b.mu.RLock()
		handlers := append([]EventHandler(nil), b.handlers...)
		b.mu.RUnlock()
		for _, h := range handlers {
			h(event)
		}
	}
}
