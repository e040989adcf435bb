package archive

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, tokenMiddleware fiber.Handler) {
	r.Post("/upload", tokenMiddleware, func(c *fiber.Ctx) error {
		var req UploadRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		if req.DeviceID == "" || len(req.Sessions) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "device_id and sessions are required")
		}

		results, err := svc.ImportBatch(c.Context(), req.DeviceID, req.Sessions)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"status": "success", "results": results})
	})

	r.Get("/export", tokenMiddleware, func(c *fiber.Ctx) error {
		from, err := time.Parse("2006-01-02", c.Query("from"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		toDate, err := time.Parse("2006-01-02", c.Query("to"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		to := toDate.Add(24 * time.Hour) // inclusive end date

		exports, err := svc.Export(c.Context(), from, to, c.Query("device_id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		if c.Query("format") == "zip" {
			var buf bytes.Buffer
			if err := WriteZIP(&buf, exports); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
			c.Set(fiber.HeaderContentType, "application/zip")
			c.Set(fiber.HeaderContentDisposition, `attachment; filename="fitness_export.zip"`)
			return c.Send(buf.Bytes())
		}
		return c.JSON(fiber.Map{"devices": exports})
	})
}
