// handlers/challenge_routes.go
package handlers

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"strings"

	"bizquits/middleware"
	"bizquits/services"

	"github.com/gofiber/fiber/v2"
)

// ProofUploader stores a proof image and returns its public URL.
type ProofUploader interface {
	UploadProofImage(ctx context.Context, fileHeader *multipart.FileHeader, participationID string) (string, error)
}

type responseBody struct {
	Response *string `json:"response"`
}

type proofBody struct {
	ProofText     *string `json:"proof_text"`
	ProofImageURL *string `json:"proof_image_url"`
}

type verifyBody struct {
	Approved *bool   `json:"approved"`
	Response *string `json:"response"`
}

type progressBody struct {
	Progress *int `json:"progress"`
}

// SetupChallengeRoutes exposes the participation lifecycle. uploader may be nil,
// in which case multipart proof uploads answer 503.
func SetupChallengeRoutes(app *fiber.App, challenges *services.ChallengeService, uploader ProofUploader) {
	user := middleware.UserContextMiddleware()

	app.Get("/user/participations", user, func(c *fiber.Ctx) error {
		parts, err := challenges.ListUserParticipations(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list participations",
				"cause": err.Error(),
			})
		}
		return c.JSON(parts)
	})

	app.Post("/challenges/:id/join", user, func(c *fiber.Ctx) error {
		p, err := challenges.Join(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return engineError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	app.Get("/participations/:id/progress", user, func(c *fiber.Ctx) error {
		info, err := challenges.GetProgressInfo(c.UserContext(), c.Params("id"))
		if err != nil {
			return engineError(c, err)
		}
		// participant or the challenge owner only
		if info.UserID != middleware.UserID(c) && info.EntrepreneurProfileID != middleware.EntrepreneurProfileID(c) {
			return engineError(c, services.ErrParticipationNotFound)
		}
		return c.JSON(info)
	})

	app.Post("/participations/:id/proof", user, func(c *fiber.Ctx) error {
		participationID := c.Params("id")
		userID := middleware.UserID(c)

		var body proofBody
		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			if text := strings.TrimSpace(c.FormValue("proof_text")); text != "" {
				body.ProofText = &text
			}
			fileHeader, err := c.FormFile("image")
			if err == nil {
				if uploader == nil {
					return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
						"error": "proof image storage is not configured",
					})
				}
				info, err := challenges.GetProgressInfo(c.UserContext(), participationID)
				if err != nil {
					return engineError(c, err)
				}
				if info.UserID != userID {
					return notAllowed(c)
				}
				url, err := uploader.UploadProofImage(c.UserContext(), fileHeader, participationID)
				if err != nil {
					log.Printf("❌ [PROOF] Upload failed for participation %s: %v", participationID, err)
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "failed to upload proof image",
						"cause": err.Error(),
					})
				}
				body.ProofImageURL = &url
			}
		} else if err := c.BodyParser(&body); err != nil {
			return badRequest(c, err)
		}

		if body.ProofText == nil && body.ProofImageURL == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "proof_text or an image is required",
			})
		}

		ok, err := challenges.SubmitProof(c.UserContext(), participationID, userID, body.ProofText, body.ProofImageURL)
		return outcome(c, ok, err, "proof submitted")
	})

	app.Post("/participations/:id/withdraw", user, func(c *fiber.Ctx) error {
		ok, err := challenges.Withdraw(c.UserContext(), c.Params("id"), middleware.UserID(c))
		return outcome(c, ok, err, "participation withdrawn")
	})

	// Entrepreneur actions: the caller must carry a business profile
	owner := []fiber.Handler{user, requireEntrepreneur}

	app.Post("/participations/:id/accept", append(owner, func(c *fiber.Ctx) error {
		var body responseBody
		if err := parseOptional(c, &body); err != nil {
			return badRequest(c, err)
		}
		ok, err := challenges.Accept(c.UserContext(), c.Params("id"), middleware.EntrepreneurProfileID(c), body.Response)
		return outcome(c, ok, err, "participation accepted")
	})...)

	app.Post("/participations/:id/reject", append(owner, func(c *fiber.Ctx) error {
		var body responseBody
		if err := parseOptional(c, &body); err != nil {
			return badRequest(c, err)
		}
		ok, err := challenges.Reject(c.UserContext(), c.Params("id"), middleware.EntrepreneurProfileID(c), body.Response)
		return outcome(c, ok, err, "participation rejected")
	})...)

	app.Post("/participations/:id/verify", append(owner, func(c *fiber.Ctx) error {
		var body verifyBody
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, err)
		}
		if body.Approved == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "approved is required"})
		}
		ok, err := challenges.VerifyProof(c.UserContext(), c.Params("id"), middleware.EntrepreneurProfileID(c), *body.Approved, body.Response)
		return outcome(c, ok, err, "proof reviewed")
	})...)

	app.Post("/participations/:id/progress", append(owner, func(c *fiber.Ctx) error {
		var body progressBody
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, err)
		}
		if body.Progress == nil || *body.Progress < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "progress must be a non-negative integer"})
		}
		ok, err := challenges.UpdateManualProgress(c.UserContext(), c.Params("id"), middleware.EntrepreneurProfileID(c), *body.Progress)
		return outcome(c, ok, err, "progress updated")
	})...)
}

func requireEntrepreneur(c *fiber.Ctx) error {
	if middleware.EntrepreneurProfileID(c) == "" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "entrepreneur profile required",
		})
	}
	return c.Next()
}

// parseOptional accepts an empty body.
func parseOptional(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

func outcome(c *fiber.Ctx, ok bool, err error, message string) error {
	if err != nil {
		return engineError(c, err)
	}
	if !ok {
		return notAllowed(c)
	}
	return c.JSON(fiber.Map{"message": message})
}

func notAllowed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "operation not allowed"})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid JSON",
		"cause": err.Error(),
	})
}

func engineError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrChallengeNotFound), errors.Is(err, services.ErrParticipationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrChallengeNotActive), errors.Is(err, services.ErrAlreadyParticipating):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "challenge operation failed",
			"cause": err.Error(),
		})
	}
}
