package handlers

import (
	"bptracker/internal/app"
	measurementController "bptracker/internal/controllers/measurements"
	"bptracker/internal/handlers/middleware"
	"bptracker/internal/logger"
	"bptracker/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler serves the chart data behind the dashboard page.
type DashboardHandler struct {
	Handler
	controller measurementController.MeasurementController
	dates      *utils.DateValidator
}

func NewDashboardHandler(app app.App, router fiber.Router) *DashboardHandler {
	log := logger.New("handlers").File("dashboard_handler")
	return &DashboardHandler{
		controller: *app.MeasurementController,
		dates:      utils.NewDateValidator(),
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *DashboardHandler) Register() {
	h.router.Get("/trend", h.middleware.AuthRequired(), h.trend)
	h.router.Get("/categories", h.middleware.AuthRequired(), h.categories)
}

func (h *DashboardHandler) trend(c *fiber.Ctx) error {
	log := h.log.Function("trend")
	user, _ := middleware.CurrentUser(c)

	errs := ValidationErrors{}
	from := parseDateQuery(c, "from", h.dates.ParseRangeStart, errs)
	to := parseDateQuery(c, "to", h.dates.ParseRangeEnd, errs)
	if errs.HasErrors() {
		return validationFailed(c, errs)
	}

	points, err := h.controller.Trend(c.UserContext(), user.ID, from, to)
	if err != nil {
		log.Er("failed to load trend", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "failed to load trend", "error": err.Error()})
	}

	return c.JSON(points)
}

func (h *DashboardHandler) categories(c *fiber.Ctx) error {
	log := h.log.Function("categories")
	user, _ := middleware.CurrentUser(c)

	errs := ValidationErrors{}
	from := parseDateQuery(c, "from", h.dates.ParseRangeStart, errs)
	to := parseDateQuery(c, "to", h.dates.ParseRangeEnd, errs)
	if errs.HasErrors() {
		return validationFailed(c, errs)
	}

	breakdown, err := h.controller.CategoryBreakdown(c.UserContext(), user.ID, from, to)
	if err != nil {
		log.Er("failed to load category breakdown", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "failed to load category breakdown", "error": err.Error()})
	}

	return c.JSON(breakdown)
}
