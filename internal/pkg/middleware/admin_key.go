package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pagflow/pagflow/app/models"
	"github.com/pagflow/pagflow/internal/pkg/env"
)

// AdminKeyMiddleware guards the key-management and simulator endpoints with
// the ADMIN_API_KEY shared secret. Comparison runs on sha256 digests so the
// timing of a mismatch reveals nothing about the key.
func AdminKeyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		configured := strings.TrimSpace(env.GetEnv("ADMIN_API_KEY", ""))
		if configured == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":   "admin_disabled",
				"message": "ADMIN_API_KEY is not configured",
			})
		}

		presented := strings.TrimSpace(c.Get("X-Admin-Key"))
		if presented == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing admin key"})
		}

		expected := models.HashSecret(configured)
		got := models.HashSecret(presented)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid admin key"})
		}

		return c.Next()
	}
}
