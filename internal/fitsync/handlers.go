package fitsync

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, tokens TokenStore, autoSync bool, middleware fiber.Handler) {
	r.Post("/sessions/:id/end", middleware, endHandler(svc, autoSync))
	r.Post("/sessions/:id/sync", middleware, syncHandler(svc))
	r.Put("/sync/credentials", middleware, credentialsHandler(tokens))
}

func endHandler(svc *Service, autoSync bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doSync := autoSync
		if raw := c.Query("sync"); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid sync value"})
			}
			doSync = parsed
		}

		session, err := svc.CloseSession(c.Context(), c.Params("id"))
		if errors.Is(err, ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to end session"})
		}

		out := fiber.Map{
			"status":   "success",
			"session":  session,
			"end_time": session.EndTime,
		}
		if doSync {
			results, err := svc.Dispatch(c.Context(), session.ID)
			if err != nil {
				// The session is already closed; report the sync failure
				// without undoing the close.
				out["sync_error"] = err.Error()
			} else {
				out["sync_results"] = results
			}
		}
		return c.JSON(out)
	}
}

func syncHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		results, err := svc.Dispatch(c.Context(), c.Params("id"))
		if errors.Is(err, ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sync session"})
		}
		return c.JSON(fiber.Map{"status": "success", "sync_results": results})
	}
}

type credentialsRequest struct {
	Provider    string `json:"provider"`
	AccessToken string `json:"access_token"`
}

func credentialsHandler(tokens TokenStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.Provider == "" || req.AccessToken == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "provider and access_token are required"})
		}
		if err := tokens.Save(c.Context(), req.Provider, req.AccessToken); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store credentials"})
		}
		return c.JSON(fiber.Map{"status": "success"})
	}
}
