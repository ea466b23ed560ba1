package middleware

import (
	"runtime/debug"

	"github.com/fathima-sithara/convert-service/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func Recovery(log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("panic recovered", "panic", r, "path", c.Path(), "stack", string(debug.Stack()))
				err = utils.TextError(c, fiber.StatusInternalServerError, "Internal server error")
			}
		}()
		return c.Next()
	}
}
