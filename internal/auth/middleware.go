package auth

import "github.com/gofiber/fiber/v2"

// TokenHeader carries the shared device secret on mutating and export
// endpoints.
const TokenHeader = "X-API-Token"

// TokenMiddleware rejects requests whose X-API-Token header does not match
// the configured shared token.
func TokenMiddleware(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got := c.Get(TokenHeader)
		if got == "" || got != token {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid API token")
		}
		return c.Next()
	}
}
