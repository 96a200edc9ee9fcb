package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"essaysmaster_backend/internals/middlewares/logger"
)

// SetupMiddlewares installs the app-wide chain. Order matters: recover
// must wrap everything below it.
func SetupMiddlewares(app *fiber.App) {
	app.Use(RecoveryMiddleware())
	app.Use(CorsMiddleware())
	app.Use(logger.LoggerMiddleware())
	app.Use(GlobalRateLimiter())
}
