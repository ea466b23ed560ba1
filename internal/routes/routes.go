package routes

import (
	"github.com/fathima-sithara/convert-service/internal/handlers"
	"github.com/fathima-sithara/convert-service/internal/metrics"
	"github.com/fathima-sithara/convert-service/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
)

// Options selects the optional pieces of the HTTP surface. Nil handlers are
// skipped.
type Options struct {
	RateLimit fiber.Handler
	Auth      fiber.Handler
	Metrics   bool
}

func Register(app *fiber.App, h *handlers.Handler, log *zap.SugaredLogger, opts Options) {
	app.Use(middleware.Recovery(log))
	app.Use(middleware.RequestLogger(log))
	app.Use(cors.New())

	app.Get("/healthz", h.Health)
	if opts.Metrics {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	var chain []fiber.Handler
	if opts.RateLimit != nil {
		chain = append(chain, opts.RateLimit)
	}
	if opts.Auth != nil {
		chain = append(chain, opts.Auth)
	}
	chain = append(chain, h.Convert)
	app.Post("/convert", chain...)
}
