package core

import (
	"context"
	"sync"
	"time"
)

// EventType classifies a domain event.
type EventType string

const (
	// EventAnimalMoved is published when an animal is admitted, transferred
	// or released. Empty From/To identifiers stand for "unhoused".
	EventAnimalMoved EventType = "animal.moved"
	// EventFeedingScheduled is published when a feeding is planned.
	EventFeedingScheduled EventType = "feeding.scheduled"
	// EventFeedingCompleted is published when a pending feeding is carried out.
	EventFeedingCompleted EventType = "feeding.completed"
)

const defaultEventBufferSize = 256

// Event is a committed domain occurrence.
type Event struct {
	ID              string    `json:"id"`
	Type            EventType `json:"type"`
	OccurredAt      time.Time `json:"occurred_at"`
	AnimalID        string    `json:"animal_id,omitempty"`
	FromEnclosureID string    `json:"from_enclosure_id,omitempty"`
	ToEnclosureID   string    `json:"to_enclosure_id,omitempty"`
	FeedingID       string    `json:"feeding_id,omitempty"`
}

// EventPublisher receives events after the transaction that produced them
// has committed.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// EventHandler reacts to a published event.
type EventHandler func(ctx context.Context, event Event)

type noopEventPublisher struct{}

func (noopEventPublisher) Publish(context.Context, Event) {}

// EventBus is an in-process publisher that keeps the most recent events in a
// ring buffer and fans each event out to subscribers synchronously.
type EventBus struct {
	mu       sync.RWMutex
	events   []Event
	head     int
	count    int
	handlers []eventSubscription
	nextID   int64
}

type eventSubscription struct {
	id      int64
	handler EventHandler
}

// NewEventBus returns a bus retaining up to size events (256 when size <= 0).
func NewEventBus(size int) *EventBus {
	if size <= 0 {
		size = defaultEventBufferSize
	}
	return &EventBus{events: make([]Event, size)}
}

// Publish implements EventPublisher. Handlers run outside the bus lock.
func (b *EventBus) Publish(ctx context.Context, event Event) {
	b.mu.Lock()
	b.events[b.head] = event
	b.head = (b.head + 1) % len(b.events)
	if b.count < len(b.events) {
		b.count++
	}
	handlers := make([]eventSubscription, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, h := range handlers {
		h.handler(ctx, event)
	}
}

// Subscribe registers handler and returns a function removing it.
func (b *EventBus) Subscribe(handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, eventSubscription{id: id, handler: handler})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, h := range b.handlers {
			if h.id == id {
				b.handlers = append(b.handlers[:i], b.handlers[i+1:]...)
				return
			}
		}
	}
}

// Recent returns up to n retained events, oldest first. n <= 0 returns all
// retained events.
func (b *EventBus) Recent(n int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 || n > b.count {
		n = b.count
	}
	out := make([]Event, 0, n)
	start := (b.head - n + len(b.events)) % len(b.events)
	for i := 0; i < n; i++ {
		out = append(out, b.events[(start+i)%len(b.events)])
	}
	return out
}

// LogEventHandler returns a handler writing each event to logger.
func LogEventHandler(logger Logger) EventHandler {
	if logger == nil {
		logger = NopLogger{}
	}
	return func(_ context.Context, event Event) {
		logger.Info("domain event",
			"event_id", event.ID,
			"type", string(event.Type),
			"animal_id", event.AnimalID,
			"from_enclosure_id", event.FromEnclosureID,
			"to_enclosure_id", event.ToEnclosureID,
			"feeding_id", event.FeedingID,
		)
	}
}

func (s *Service) publish(ctx context.Context, events ...Event) {
	if _, off := s.events.(noopEventPublisher); off {
		return
	}
	for _, event := range events {
		if event.ID == "" {
			event.ID = s.ids.NewID()
		}
		if event.OccurredAt.IsZero() {
			event.OccurredAt = s.clock.Now().UTC()
		}
		s.events.Publish(ctx, event)
	}
}

func movedEvent(animalID, from, to string) Event {
	return Event{Type: EventAnimalMoved, AnimalID: animalID, FromEnclosureID: from, ToEnclosureID: to}
}
