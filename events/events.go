package events

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"
)

// EventType represents the type of domain event.
type EventType string

const (
	// EventBookingCreated is emitted by the booking subsystem for every new booking
	EventBookingCreated EventType = "booking.created"
	// EventBookingCompleted is emitted when a booking is marked completed
	EventBookingCompleted EventType = "booking.completed"
	// EventReviewApproved is emitted when an admin approves a review
	EventReviewApproved EventType = "review.approved"
	// EventOfferClaimed is emitted when a client's offer claim is recorded
	EventOfferClaimed EventType = "offer.claimed"
)

var knownTypes = map[EventType]bool{
	EventBookingCreated:   true,
	EventBookingCompleted: true,
	EventReviewApproved:   true,
	EventOfferClaimed:     true,
}

// ParseEventType validates an event type received from outside the process.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !knownTypes[t] {
		return "", fmt.Errorf("unknown event type %q", s)
	}
	return t, nil
}

// Event is a marketplace domain event. ServiceID is set for booking and review
// events, OfferID for offer claims.
type Event struct {
	Type       EventType `json:"type"`
	ClientID   string    `json:"client_id"`
	ServiceID  string    `json:"service_id,omitempty"`
	OfferID    string    `json:"offer_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

type subscriber struct {
	name    string
	handler Handler
}

// Bus delivers domain events to gamification subscribers. Publishing never
// fails: subscriber errors and panics are logged and dropped, so the primary
// booking/review/offer operation is unaffected.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]subscriber
	Logger   *log.Logger
}

// NewBus creates an empty bus logging to the standard logger.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]subscriber),
		Logger:   log.Default(),
	}
}

// Subscribe registers a named handler for an event type.
func (b *Bus) Subscribe(eventType EventType, name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], subscriber{name: name, handler: handler})
}

// Publish runs every subscriber of the event's type in registration order and
// returns the number that failed.
func (b *Bus) Publish(ctx context.Context, event Event) int {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	b.mu.RLock()
	subs := b.handlers[event.Type]
	b.mu.RUnlock()

	failed := 0
	for _, sub := range subs {
		if err := b.dispatch(ctx, sub, event); err != nil {
			failed++
			b.Logger.Printf("⚠️ [EVENTS] %s handler %q failed (client=%s service=%s offer=%s): %v",
				event.Type, sub.name, event.ClientID, event.ServiceID, event.OfferID, err)
		}
	}
	return failed
}

func (b *Bus) dispatch(ctx context.Context, sub subscriber, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return sub.handler(ctx, event)
}

// Subscribers returns the handler names registered for an event type.
func (b *Bus) Subscribers(eventType EventType) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.handlers[eventType]))
	for _, sub := range b.handlers[eventType] {
		names = append(names, sub.name)
	}
	return names
}
