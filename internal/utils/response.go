package utils

import "github.com/gofiber/fiber/v2"

// TextError answers with a plain-text body, the format every error response
// of this service uses.
func TextError(c *fiber.Ctx, status int, msg string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(status).SendString(msg)
}
