package telemetry

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, tokenMiddleware fiber.Handler) {
	r.Post("/data", tokenMiddleware, func(c *fiber.Ctx) error {
		var packet Packet
		if err := c.BodyParser(&packet); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}

		sessionID, _, err := svc.Ingest(c.Context(), packet, c.Body())
		if errors.Is(err, ErrDeviceRequired) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"status": "success", "session_id": sessionID})
	})
}
