package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestLogger logs every request once it has been answered.
func RequestLogger(log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		fields := []interface{}{
			"method", c.Method(),
			"path", c.OriginalURL(),
			"status", status,
			"ip", c.IP(),
			"duration", time.Since(start),
		}
		if err != nil {
			fields = append(fields, "error", err)
		}
		if status >= fiber.StatusInternalServerError {
			log.Warnw("request", fields...)
		} else {
			log.Infow("request", fields...)
		}
		return err
	}
}
