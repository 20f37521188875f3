package events

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
)

func newTestBus() (*Bus, *bytes.Buffer) {
	var buf bytes.Buffer
	bus := NewBus()
	bus.Logger = log.New(&buf, "", 0)
	return bus, &buf
}

func TestPublish_RunsSubscribersInOrder(t *testing.T) {
	bus, _ := newTestBus()
	var calls []string

	bus.Subscribe(EventBookingCompleted, "first", func(ctx context.Context, e Event) error {
		calls = append(calls, "first:"+e.ClientID)
		return nil
	})
	bus.Subscribe(EventBookingCompleted, "second", func(ctx context.Context, e Event) error {
		calls = append(calls, "second:"+e.ClientID)
		return nil
	})

	failed := bus.Publish(context.Background(), Event{Type: EventBookingCompleted, ClientID: "c1"})
	if failed != 0 {
		t.Errorf("Expected 0 failures, got %d", failed)
	}
	if strings.Join(calls, ",") != "first:c1,second:c1" {
		t.Errorf("Unexpected call order: %v", calls)
	}
}

func TestPublish_IsolatesErrorsAndPanics(t *testing.T) {
	bus, buf := newTestBus()
	reached := false

	bus.Subscribe(EventReviewApproved, "erroring", func(ctx context.Context, e Event) error {
		return errors.New("db down")
	})
	bus.Subscribe(EventReviewApproved, "panicking", func(ctx context.Context, e Event) error {
		panic("boom")
	})
	bus.Subscribe(EventReviewApproved, "healthy", func(ctx context.Context, e Event) error {
		reached = true
		return nil
	})

	failed := bus.Publish(context.Background(), Event{Type: EventReviewApproved, ClientID: "c1", ServiceID: "s1"})
	if failed != 2 {
		t.Errorf("Expected 2 failures, got %d", failed)
	}
	if !reached {
		t.Error("Expected healthy subscriber to run after failures")
	}
	out := buf.String()
	if !strings.Contains(out, `"erroring" failed`) || !strings.Contains(out, "db down") {
		t.Errorf("Expected error to be logged, got: %s", out)
	}
	if !strings.Contains(out, "panic: boom") {
		t.Errorf("Expected panic to be logged, got: %s", out)
	}
}

func TestPublish_NoSubscribers(t *testing.T) {
	bus, _ := newTestBus()
	if failed := bus.Publish(context.Background(), Event{Type: EventOfferClaimed}); failed != 0 {
		t.Errorf("Expected 0 failures, got %d", failed)
	}
}

func TestPublish_StampsOccurredAt(t *testing.T) {
	bus, _ := newTestBus()
	var got Event
	bus.Subscribe(EventOfferClaimed, "capture", func(ctx context.Context, e Event) error {
		got = e
		return nil
	})
	bus.Publish(context.Background(), Event{Type: EventOfferClaimed, ClientID: "c1", OfferID: "o1"})
	if got.OccurredAt.IsZero() {
		t.Error("Expected OccurredAt to be set")
	}
}

func TestParseEventType(t *testing.T) {
	if _, err := ParseEventType("booking.completed"); err != nil {
		t.Errorf("Expected booking.completed to parse: %v", err)
	}
	if _, err := ParseEventType("booking.cancelled"); err == nil {
		t.Error("Expected unknown type to fail")
	}
}
