package routes

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/arnold/milestones-api/internal/handlers"
	"github.com/arnold/milestones-api/internal/logger"
)

// NewApp builds the fiber app with middleware and every route mounted.
func NewApp(secret string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "milestones-api",
		ErrorHandler:          handlers.ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${status} ${method} ${path} ${latency}\n",
		Output: logger.Writer(),
	}))

	Setup(app, secret)
	return app
}
