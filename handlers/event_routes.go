// handlers/event_routes.go
package handlers

import (
	"time"

	"bizquits/events"

	"github.com/gofiber/fiber/v2"
)

type eventBody struct {
	ClientID   string     `json:"client_id"`
	ServiceID  string     `json:"service_id"`
	OfferID    string     `json:"offer_id"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// SetupEventRoutes lets the booking, review and offer services publish domain
// events over HTTP. Subscriber failures never reach the caller.
func SetupEventRoutes(app *fiber.App, bus *events.Bus) {
	app.Post("/internal/events/:type", func(c *fiber.Ctx) error {
		eventType, err := events.ParseEventType(c.Params("type"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		var body eventBody
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, err)
		}
		if body.ClientID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "client_id is required"})
		}
		if eventType == events.EventOfferClaimed && body.OfferID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "offer_id is required"})
		}
		if (eventType == events.EventBookingCompleted || eventType == events.EventReviewApproved) && body.ServiceID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "service_id is required"})
		}

		e := events.Event{
			Type:      eventType,
			ClientID:  body.ClientID,
			ServiceID: body.ServiceID,
			OfferID:   body.OfferID,
		}
		if body.OccurredAt != nil {
			e.OccurredAt = *body.OccurredAt
		}

		failed := bus.Publish(c.UserContext(), e)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"accepted":           true,
			"failed_subscribers": failed,
		})
	})
}
