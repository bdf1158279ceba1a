package handlers

import (
	"bptracker/internal/app"
	"bptracker/internal/handlers/middleware"
	"bptracker/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func Router(router fiber.Router, app *app.App) (err error) {
	router.Use(app.Middleware.RequestTimeout())
	setupWebSocketRoute(router, app)

	api := router.Group("/api")
	HealthHandler(api, app)
	NewUserHandler(*app, api).Register()
	NewMeasurementHandler(*app, api).Register()
	NewPostureHandler(*app, api).Register()

	dashboard := router.Group("/bp/api")
	NewDashboardHandler(*app, dashboard).Register()

	return nil
}

func setupWebSocketRoute(router fiber.Router, app *app.App) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, app.Middleware.AuthRequired())
	router.Get("/ws", websocket.New(func(c *websocket.Conn) {
		app.Websocket.HandleWebSocket(c)
	}))
}
