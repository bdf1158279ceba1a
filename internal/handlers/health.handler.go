package handlers

import (
	"bptracker/internal/app"
	"bptracker/internal/logger"

	"github.com/gofiber/fiber/v2"
)

func HealthHandler(router fiber.Router, app *app.App) {
	log := logger.New("handlers").File("health_handler").Function("health")

	router.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status":      "ok",
			"version":     app.Config.GeneralVersion,
			"environment": app.Config.Environment,
			"database":    "ok",
		}

		if err := app.Database.Ping(c.UserContext()); err != nil {
			log.Er("health check failed", err)
			status["status"] = "degraded"
			status["database"] = "unavailable"
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}

		return c.JSON(status)
	})
}
