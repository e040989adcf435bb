package stats

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultHistoryDays = 7

// RegisterRoutes mounts the read-only dashboard endpoints. These carry no
// token guard; they never mutate state. Literal paths come first so
// /sessions/current is never captured by :id.
func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/sessions/current", currentHandler(svc))
	r.Get("/sessions/daily", dailyHandler(svc))
	r.Get("/sessions/cumulative", cumulativeHandler(svc))
	r.Get("/sessions/history", historyHandler(svc))
	r.Get("/sessions/:id", detailHandler(svc))
}

func currentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := svc.CurrentSession(c.Context())
		if errors.Is(err, ErrNoActiveSession) {
			return c.JSON(fiber.Map{"status": "no_active_session"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load current session"})
		}
		return c.JSON(snap)
	}
}

func dailyHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day := time.Now().In(svc.loc)
		if raw := c.Query("date"); raw != "" {
			parsed, err := time.ParseInLocation("2006-01-02", raw, svc.loc)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format"})
			}
			day = parsed
		}

		buckets, err := svc.DailyBuckets(c.Context(), day)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to aggregate day"})
		}
		return c.JSON(fiber.Map{
			"date":    day.Format("2006-01-02"),
			"buckets": buckets,
		})
	}
}

func cumulativeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		totals, err := svc.CumulativeTotals(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute totals"})
		}
		return c.JSON(totals)
	}
}

func historyHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		days := defaultHistoryDays
		if raw := c.Query("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid days value"})
			}
			days = parsed
		}

		sessions, err := svc.History(c.Context(), time.Duration(days)*24*time.Hour)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load history"})
		}
		return c.JSON(fiber.Map{"sessions": sessions})
	}
}

func detailHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, points, err := svc.SessionDetail(c.Context(), c.Params("id"))
		if errors.Is(err, ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load session"})
		}
		return c.JSON(fiber.Map{
			"session":     session,
			"data_points": points,
		})
	}
}
