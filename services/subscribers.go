package services

import (
	"context"
	"log"

	"bizquits/events"
)

// RegisterGamificationSubscribers wires the ledger and the challenge engine to
// marketplace events. Handler errors stay inside the bus.
func RegisterGamificationSubscribers(bus *events.Bus, ledger *GamificationService, challenges *ChallengeService) {
	bus.Subscribe(events.EventBookingCreated, "ledger.first_booking", func(ctx context.Context, e events.Event) error {
		return ledger.AwardFirstBooking(ctx, e.ClientID)
	})

	bus.Subscribe(events.EventBookingCompleted, "ledger.booking_completed", func(ctx context.Context, e events.Event) error {
		return ledger.AwardBookingCompleted(ctx, e.ClientID)
	})
	bus.Subscribe(events.EventBookingCompleted, "challenges.booking_completed", func(ctx context.Context, e events.Event) error {
		n, err := challenges.OnBookingCompleted(ctx, e.ClientID, e.ServiceID)
		logAdvanced(e, n)
		return err
	})

	bus.Subscribe(events.EventReviewApproved, "ledger.review_approved", func(ctx context.Context, e events.Event) error {
		return ledger.AwardReviewApproved(ctx, e.ClientID)
	})
	bus.Subscribe(events.EventReviewApproved, "challenges.review_approved", func(ctx context.Context, e events.Event) error {
		n, err := challenges.OnReviewApproved(ctx, e.ClientID, e.ServiceID)
		logAdvanced(e, n)
		return err
	})

	bus.Subscribe(events.EventOfferClaimed, "challenges.offer_claimed", func(ctx context.Context, e events.Event) error {
		n, err := challenges.OnOfferClaimed(ctx, e.ClientID, e.OfferID)
		logAdvanced(e, n)
		return err
	})
}

func logAdvanced(e events.Event, n int) {
	if n > 0 {
		log.Printf("🎯 [CHALLENGE] %s advanced %d participation(s) for %s", e.Type, n, e.ClientID)
	}
}
