package measurementController

import (
	"bptracker/internal/events"
	"bptracker/internal/logger"
	. "bptracker/internal/models"
	"bptracker/internal/repositories"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Publisher is the slice of the event bus the controller needs.
type Publisher interface {
	Publish(channel string, event events.Event) error
}

type MeasurementController struct {
	measurementRepo repositories.MeasurementRepository
	postureRepo     repositories.PostureRepository
	eventBus        Publisher
	now             func() time.Time
	log             logger.Logger
}

func New(
	measurementRepo repositories.MeasurementRepository,
	postureRepo repositories.PostureRepository,
	eventBus Publisher,
) *MeasurementController {
	return &MeasurementController{
		measurementRepo: measurementRepo,
		postureRepo:     postureRepo,
		eventBus:        eventBus,
		now:             func() time.Time { return time.Now().UTC() },
		log:             logger.New("MeasurementController"),
	}
}

func (mc *MeasurementController) List(
	ctx context.Context,
	userID string,
	filter MeasurementFilter,
) (PagedResult[MeasurementListItem], error) {
	log := mc.log.Function("List")
	filter = filter.Normalize()

	measurements, total, err := mc.measurementRepo.List(ctx, userID, filter)
	if err != nil {
		return PagedResult[MeasurementListItem]{}, log.Err("failed to list measurements", err, "userID", userID)
	}

	items := make([]MeasurementListItem, 0, len(measurements))
	for _, measurement := range measurements {
		items = append(items, measurement.ListItem())
	}

	return NewPagedResult(items, filter.Page, filter.PageSize, total), nil
}

// Export returns every reading matching filter, ignoring pagination.
func (mc *MeasurementController) Export(
	ctx context.Context,
	userID string,
	filter MeasurementFilter,
) ([]MeasurementListItem, error) {
	measurements, err := mc.measurementRepo.ListAll(ctx, userID, filter)
	if err != nil {
		return nil, mc.log.Function("Export").Err("failed to export measurements", err, "userID", userID)
	}

	items := make([]MeasurementListItem, 0, len(measurements))
	for _, measurement := range measurements {
		items = append(items, measurement.ListItem())
	}

	return items, nil
}

// Get returns ErrNotFound for missing, deleted or foreign readings.
func (mc *MeasurementController) Get(
	ctx context.Context,
	userID string,
	id int,
) (MeasurementListItem, error) {
	measurement, err := mc.measurementRepo.GetByID(ctx, userID, id)
	if errors.Is(err, ErrNotFound) {
		return MeasurementListItem{}, ErrNotFound
	}
	if err != nil {
		return MeasurementListItem{}, mc.log.Function("Get").
			Err("failed to get measurement", err, "userID", userID, "id", id)
	}

	return measurement.ListItem(), nil
}

func (mc *MeasurementController) Create(
	ctx context.Context,
	userID string,
	input MeasurementInput,
) (int, error) {
	log := mc.log.Function("Create")

	if userID == "" {
		return 0, log.Error("user id is required")
	}

	measurement := &Measurement{
		UserID:            userID,
		Systolic:          input.Systolic,
		Diastolic:         input.Diastolic,
		DateOfMeasurement: input.DateOfMeasurement.UTC(),
		Pulse:             input.Pulse,
		Notes:             input.Notes,
		PostureID:         input.PostureID,
		CreatedAt:         mc.now(),
		IsDeleted:         false,
	}

	if err := mc.measurementRepo.Create(ctx, measurement); err != nil {
		return 0, log.Err("failed to create measurement", err, "userID", userID)
	}

	mc.publish(events.MeasurementCreated, userID, measurement.ID)

	return measurement.ID, nil
}

// Update reports false when no live reading with id belongs to userID.
func (mc *MeasurementController) Update(
	ctx context.Context,
	userID string,
	id int,
	input MeasurementInput,
) (bool, error) {
	log := mc.log.Function("Update")

	input.DateOfMeasurement = input.DateOfMeasurement.UTC()
	ok, err := mc.measurementRepo.Update(ctx, userID, id, input, mc.now())
	if err != nil {
		return false, log.Err("failed to update measurement", err, "userID", userID, "id", id)
	}

	if ok {
		mc.publish(events.MeasurementUpdated, userID, id)
	}

	return ok, nil
}

func (mc *MeasurementController) Delete(ctx context.Context, userID string, id int) (bool, error) {
	log := mc.log.Function("Delete")

	ok, err := mc.measurementRepo.SoftDelete(ctx, userID, id)
	if err != nil {
		return false, log.Err("failed to delete measurement", err, "userID", userID, "id", id)
	}

	if ok {
		mc.publish(events.MeasurementDeleted, userID, id)
	}

	return ok, nil
}

// CategoryBreakdown counts readings per category. Categories without
// readings are left out of the map.
func (mc *MeasurementController) CategoryBreakdown(
	ctx context.Context,
	userID string,
	from, to *time.Time,
) (map[Category]int, error) {
	points, err := mc.measurementRepo.Readings(ctx, userID, from, to)
	if err != nil {
		return nil, mc.log.Function("CategoryBreakdown").
			Err("failed to load readings", err, "userID", userID)
	}

	breakdown := make(map[Category]int)
	for _, point := range points {
		breakdown[Categorize(point.Systolic, point.Diastolic)]++
	}

	return breakdown, nil
}

func (mc *MeasurementController) Trend(
	ctx context.Context,
	userID string,
	from, to *time.Time,
) ([]TrendPoint, error) {
	points, err := mc.measurementRepo.Readings(ctx, userID, from, to)
	if err != nil {
		return nil, mc.log.Function("Trend").Err("failed to load readings", err, "userID", userID)
	}

	return points, nil
}

func (mc *MeasurementController) ListPostures(ctx context.Context) ([]Posture, error) {
	postures, err := mc.postureRepo.GetAll(ctx)
	if err != nil {
		return nil, mc.log.Function("ListPostures").Err("failed to list postures", err)
	}

	return postures, nil
}

func (mc *MeasurementController) PostureExists(ctx context.Context, id int) (bool, error) {
	return mc.postureRepo.Exists(ctx, id)
}

func (mc *MeasurementController) publish(eventType, userID string, id int) {
	if mc.eventBus == nil {
		return
	}

	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Action:    eventType,
		UserID:    userID,
		Data:      map[string]any{"id": id},
		Timestamp: mc.now(),
	}

	if err := mc.eventBus.Publish(events.ChannelMeasurements, event); err != nil {
		mc.log.Function("publish").
			Warn("failed to publish measurement event", "type", eventType, "id", id, "error", err)
	}
}
