package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/essay-eval-api/internal/config"
	"github.com/noah-isme/essay-eval-api/internal/handler"
	"github.com/noah-isme/essay-eval-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EssayEvalHandler *handler.EssayEvalHandler
	UsageHandler     *handler.UsageHandler
	PromptHandler    *handler.PromptHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.EssayEvalHandler != nil {
		deps.EssayEvalHandler.Register(api)
	}

	if deps.UsageHandler != nil {
		deps.UsageHandler.Register(api)
	}

	if deps.PromptHandler != nil {
		deps.PromptHandler.Register(api)
	}

	app.Get("/metrics", observability.MetricsHandler())
}
