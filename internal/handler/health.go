package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/storytailer/api/pkg/response"
)

// Health handles GET /health.
func Health(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{"status": "ok"})
}
