package handlers

import (
	"bptracker/internal/app"
	measurementController "bptracker/internal/controllers/measurements"
	"bptracker/internal/logger"

	"github.com/gofiber/fiber/v2"
)

type PostureHandler struct {
	Handler
	controller measurementController.MeasurementController
}

func NewPostureHandler(app app.App, router fiber.Router) *PostureHandler {
	log := logger.New("handlers").File("posture_handler")
	return &PostureHandler{
		controller: *app.MeasurementController,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *PostureHandler) Register() {
	h.router.Get("/postures", h.middleware.AuthRequired(), h.getPostures)
}

func (h *PostureHandler) getPostures(c *fiber.Ctx) error {
	postures, err := h.controller.ListPostures(c.UserContext())
	if err != nil {
		h.log.Function("getPostures").Er("failed to list postures", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "failed to list postures", "error": err.Error()})
	}

	return c.JSON(postures)
}
