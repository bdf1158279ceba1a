package handlers

import (
	"bptracker/internal/app"
	measurementController "bptracker/internal/controllers/measurements"
	"bptracker/internal/handlers/middleware"
	"bptracker/internal/logger"
	. "bptracker/internal/models"
	"bptracker/internal/utils"
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// MeasurementRequest is the create and update body. Dates arrive as
// strings so both RFC3339 and plain dates are accepted.
type MeasurementRequest struct {
	Systolic          *int    `json:"systolic"          validate:"required,min=20,max=400"`
	Diastolic         *int    `json:"diastolic"         validate:"required,min=10,max=300"`
	DateOfMeasurement string  `json:"dateOfMeasurement" validate:"required"`
	Pulse             *int    `json:"pulse"             validate:"omitempty,gte=0,lte=400"`
	Notes             *string `json:"notes"             validate:"omitempty,max=512"`
	PostureID         *int    `json:"postureId"         validate:"omitempty,gte=1"`
}

type MeasurementHandler struct {
	Handler
	controller measurementController.MeasurementController
	dates      *utils.DateValidator
}

func NewMeasurementHandler(app app.App, router fiber.Router) *MeasurementHandler {
	log := logger.New("handlers").File("measurement_handler")
	return &MeasurementHandler{
		controller: *app.MeasurementController,
		dates:      utils.NewDateValidator(),
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *MeasurementHandler) Register() {
	measurements := h.router.Group("/measurements", h.middleware.AuthRequired())
	measurements.Get("/", h.listMeasurements)
	measurements.Get("/export", h.exportMeasurements)
	measurements.Get("/:id", h.getMeasurement)
	measurements.Post("/", h.createMeasurement)
	measurements.Put("/:id", h.updateMeasurement)
	measurements.Delete("/:id", h.deleteMeasurement)
}

func (h *MeasurementHandler) listMeasurements(c *fiber.Ctx) error {
	log := h.log.Function("listMeasurements")
	user, _ := middleware.CurrentUser(c)

	filter, errs := parseMeasurementFilter(c, h.dates)
	if errs.HasErrors() {
		log.Debug("invalid measurement filter", "errors", errs)
		return validationFailed(c, errs)
	}

	result, err := h.controller.List(c.UserContext(), user.ID, filter)
	if err != nil {
		log.Er("failed to list measurements", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "failed to list measurements", "error": err.Error()})
	}

	return c.JSON(result)
}

var exportHeaders = []string{
	"id", "dateOfMeasurement", "systolic", "diastolic", "pulse",
	"category", "posture", "notes", "createdAt", "updatedAt",
}

func (h *MeasurementHandler) exportMeasurements(c *fiber.Ctx) error {
	log := h.log.Function("exportMeasurements")
	user, _ := middleware.CurrentUser(c)

	filter, errs := parseMeasurementFilter(c, h.dates)
	if errs.HasErrors() {
		return validationFailed(c, errs)
	}

	items, err := h.controller.Export(c.UserContext(), user.ID, filter)
	if err != nil {
		log.Er("failed to export measurements", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "failed to export measurements", "error": err.Error()})
	}

	var buf bytes.Buffer
	writer := utils.NewCSVWriter(&buf)
	if err := writer.WriteHeaders(exportHeaders); err != nil {
		return log.Err("failed to write export headers", err)
	}
	for _, item := range items {
		if err := writer.WriteRow(exportRow(item)); err != nil {
			return log.Err("failed to write export row", err, "id", item.ID)
		}
	}
	if err := writer.Flush(); err != nil {
		return log.Err("failed to flush export", err)
	}

	c.Attachment("measurements.csv")
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(buf.Bytes())
}

func exportRow(item MeasurementListItem) []string {
	row := []string{
		strconv.Itoa(item.ID),
		item.DateOfMeasurement.UTC().Format(time.RFC3339),
		strconv.Itoa(item.Systolic),
		strconv.Itoa(item.Diastolic),
		"",
		string(item.Category),
		"",
		"",
		item.CreatedAt.UTC().Format(time.RFC3339),
		"",
	}
	if item.Pulse != nil {
		row[4] = strconv.Itoa(*item.Pulse)
	}
	if item.Posture != nil {
		row[6] = *item.Posture
	}
	if item.Notes != nil {
		row[7] = *item.Notes
	}
	if item.UpdatedAt != nil {
		row[9] = item.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return row
}

func (h *MeasurementHandler) getMeasurement(c *fiber.Ctx) error {
	log := h.log.Function("getMeasurement")
	user, _ := middleware.CurrentUser(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return measurementNotFound(c)
	}

	item, err := h.controller.Get(c.UserContext(), user.ID, id)
	if errors.Is(err, ErrNotFound) {
		return measurementNotFound(c)
	}
	if err != nil {
		log.Er("failed to get measurement", err, "id", id)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "failed to get measurement", "error": err.Error()})
	}

	return c.JSON(item)
}

func (h *MeasurementHandler) createMeasurement(c *fiber.Ctx) error {
	log := h.log.Function("createMeasurement")
	user, _ := middleware.CurrentUser(c)

	input, errs, err := h.parseMeasurementRequest(c)
	if err != nil {
		log.Er("failed to check posture", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "failed to create measurement", "error": err.Error()})
	}
	if errs.HasErrors() {
		log.Debug("invalid measurement request", "errors", errs)
		return validationFailed(c, errs)
	}

	id, err := h.controller.Create(c.UserContext(), user.ID, input)
	if err != nil {
		log.Er("failed to create measurement", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "failed to create measurement", "error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *MeasurementHandler) updateMeasurement(c *fiber.Ctx) error {
	log := h.log.Function("updateMeasurement")
	user, _ := middleware.CurrentUser(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return measurementNotFound(c)
	}

	input, errs, err := h.parseMeasurementRequest(c)
	if err != nil {
		log.Er("failed to check posture", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "failed to update measurement", "error": err.Error()})
	}
	if errs.HasErrors() {
		log.Debug("invalid measurement request", "errors", errs, "id", id)
		return validationFailed(c, errs)
	}

	ok, err := h.controller.Update(c.UserContext(), user.ID, id, input)
	if err != nil {
		log.Er("failed to update measurement", err, "id", id)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "failed to update measurement", "error": err.Error()})
	}
	if !ok {
		return measurementNotFound(c)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *MeasurementHandler) deleteMeasurement(c *fiber.Ctx) error {
	log := h.log.Function("deleteMeasurement")
	user, _ := middleware.CurrentUser(c)

	id, err := c.ParamsInt("id")
	if err != nil {
		return measurementNotFound(c)
	}

	ok, err := h.controller.Delete(c.UserContext(), user.ID, id)
	if err != nil {
		log.Er("failed to delete measurement", err, "id", id)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "failed to delete measurement", "error": err.Error()})
	}
	if !ok {
		return measurementNotFound(c)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// parseMeasurementRequest returns field errors for bad input and a plain
// error only when the posture lookup itself fails.
func (h *MeasurementHandler) parseMeasurementRequest(
	c *fiber.Ctx,
) (MeasurementInput, ValidationErrors, error) {
	var request MeasurementRequest
	if err := c.BodyParser(&request); err != nil {
		errs := ValidationErrors{}
		errs.Add("body", "must be a valid measurement JSON object")
		return MeasurementInput{}, errs, nil
	}

	errs := validateStruct(request)

	date, ok := h.dates.ParseDate(request.DateOfMeasurement)
	if request.DateOfMeasurement != "" && !ok {
		errs.Add("dateOfMeasurement", "must be an RFC3339 timestamp or YYYY-MM-DD date")
	}

	if request.Notes != nil && strings.TrimSpace(*request.Notes) == "" {
		request.Notes = nil
	}

	if request.PostureID != nil && *request.PostureID > 0 {
		exists, err := h.controller.PostureExists(c.UserContext(), *request.PostureID)
		if err != nil {
			return MeasurementInput{}, nil, err
		}
		if !exists {
			errs.Add("postureId", "unknown posture")
		}
	}

	if errs.HasErrors() {
		return MeasurementInput{}, errs, nil
	}

	return MeasurementInput{
		Systolic:          *request.Systolic,
		Diastolic:         *request.Diastolic,
		DateOfMeasurement: date,
		Pulse:             request.Pulse,
		Notes:             request.Notes,
		PostureID:         request.PostureID,
	}, errs, nil
}

// parseMeasurementFilter reads the listing query string. Every malformed
// value is reported; empty values are treated as absent.
func parseMeasurementFilter(c *fiber.Ctx, dates *utils.DateValidator) (MeasurementFilter, ValidationErrors) {
	errs := ValidationErrors{}
	filter := MeasurementFilter{}

	filter.From = parseDateQuery(c, "from", dates.ParseRangeStart, errs)
	filter.To = parseDateQuery(c, "to", dates.ParseRangeEnd, errs)
	filter.MinSys = parseIntQuery(c, "minSys", errs)
	filter.MaxSys = parseIntQuery(c, "maxSys", errs)
	filter.MinDia = parseIntQuery(c, "minDia", errs)
	filter.MaxDia = parseIntQuery(c, "maxDia", errs)

	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		category, ok := ParseCategory(raw)
		if !ok {
			category = Category(raw)
		}
		filter.Category = &category
	}

	filter.SortBy = ParseSortKey(c.Query("sortBy"))

	if raw := strings.TrimSpace(c.Query("desc")); raw != "" {
		desc, err := strconv.ParseBool(raw)
		if err != nil {
			errs.Add("desc", "must be true or false")
		} else {
			filter.Desc = &desc
		}
	}

	if page := parseIntQuery(c, "page", errs); page != nil {
		filter.Page = *page
	}
	if pageSize := parseIntQuery(c, "pageSize", errs); pageSize != nil {
		if *pageSize > MaxPageSize {
			errs.Add("pageSize", "must be at most "+strconv.Itoa(MaxPageSize))
		} else {
			filter.PageSize = *pageSize
		}
	}

	return filter, errs
}

func parseDateQuery(
	c *fiber.Ctx,
	key string,
	parse func(string) (time.Time, bool),
	errs ValidationErrors,
) *time.Time {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}

	value, ok := parse(raw)
	if !ok {
		errs.Add(key, "must be an RFC3339 timestamp or YYYY-MM-DD date")
		return nil
	}
	return &value
}

func parseIntQuery(c *fiber.Ctx, key string, errs ValidationErrors) *int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		errs.Add(key, "must be an integer")
		return nil
	}
	return &value
}

func measurementNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "measurement not found"})
}
