package repositories

import (
	"bptracker/internal/database"
	"bptracker/internal/logger"
	. "bptracker/internal/models"
	"bptracker/internal/services"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MeasurementRepository interface {
	List(ctx context.Context, userID string, filter MeasurementFilter) ([]Measurement, int64, error)
	ListAll(ctx context.Context, userID string, filter MeasurementFilter) ([]Measurement, error)
	GetByID(ctx context.Context, userID string, id int) (*Measurement, error)
	Create(ctx context.Context, measurement *Measurement) error
	Update(
		ctx context.Context,
		userID string,
		id int,
		input MeasurementInput,
		updatedAt time.Time,
	) (bool, error)
	SoftDelete(ctx context.Context, userID string, id int) (bool, error)
	Readings(ctx context.Context, userID string, from, to *time.Time) ([]TrendPoint, error)
}

type measurementRepository struct {
	db  database.DB
	log logger.Logger
}

func NewMeasurement(db database.DB) MeasurementRepository {
	return &measurementRepository{
		db:  db,
		log: logger.New("measurementRepository"),
	}
}

func (r *measurementRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

// owned scopes every query to the caller's live rows.
func (r *measurementRepository) owned(ctx context.Context, userID string) *gorm.DB {
	return r.getDB(ctx).
		Model(&Measurement{}).
		Where("user_id = ? AND is_deleted = ?", userID, false)
}

func (r *measurementRepository) List(
	ctx context.Context,
	userID string,
	filter MeasurementFilter,
) ([]Measurement, int64, error) {
	log := r.log.Function("List")
	filter = filter.Normalize()

	query := applyFilter(r.owned(ctx, userID), filter).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, log.Err("failed to count measurements", err, "userID", userID)
	}

	var measurements []Measurement
	if err := applyOrder(query.Preload("Posture"), filter).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&measurements).Error; err != nil {
		return nil, 0, log.Err("failed to list measurements", err,
			"userID", userID, "page", filter.Page, "pageSize", filter.PageSize)
	}

	return measurements, total, nil
}

func (r *measurementRepository) ListAll(
	ctx context.Context,
	userID string,
	filter MeasurementFilter,
) ([]Measurement, error) {
	log := r.log.Function("ListAll")
	filter = filter.Normalize()

	var measurements []Measurement
	query := applyFilter(r.owned(ctx, userID), filter).Preload("Posture")
	if err := applyOrder(query, filter).Find(&measurements).Error; err != nil {
		return nil, log.Err("failed to list all measurements", err, "userID", userID)
	}

	return measurements, nil
}

func (r *measurementRepository) GetByID(
	ctx context.Context,
	userID string,
	id int,
) (*Measurement, error) {
	var measurement Measurement
	err := r.owned(ctx, userID).Preload("Posture").Where("id = ?", id).First(&measurement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, r.log.Function("GetByID").
			Err("failed to get measurement", err, "userID", userID, "id", id)
	}

	return &measurement, nil
}

func (r *measurementRepository) Create(ctx context.Context, measurement *Measurement) error {
	log := r.log.Function("Create")

	if err := r.getDB(ctx).Omit("Posture").Create(measurement).Error; err != nil {
		return log.Err("failed to create measurement", err, "userID", measurement.UserID)
	}

	return nil
}

// Update overwrites the editable fields in one conditional statement and
// reports whether a live row owned by userID matched.
func (r *measurementRepository) Update(
	ctx context.Context,
	userID string,
	id int,
	input MeasurementInput,
	updatedAt time.Time,
) (bool, error) {
	log := r.log.Function("Update")

	result := r.owned(ctx, userID).Where("id = ?", id).Updates(map[string]any{
		"systolic":            input.Systolic,
		"diastolic":           input.Diastolic,
		"date_of_measurement": input.DateOfMeasurement,
		"pulse":               input.Pulse,
		"notes":               input.Notes,
		"posture_id":          input.PostureID,
		"updated_at":          updatedAt,
	})
	if result.Error != nil {
		return false, log.Err("failed to update measurement", result.Error, "userID", userID, "id", id)
	}

	return result.RowsAffected > 0, nil
}

func (r *measurementRepository) SoftDelete(ctx context.Context, userID string, id int) (bool, error) {
	log := r.log.Function("SoftDelete")

	result := r.owned(ctx, userID).Where("id = ?", id).Update("is_deleted", true)
	if result.Error != nil {
		return false, log.Err("failed to delete measurement", result.Error, "userID", userID, "id", id)
	}

	return result.RowsAffected > 0, nil
}

// Readings returns date and pressure for every live row, oldest first.
func (r *measurementRepository) Readings(
	ctx context.Context,
	userID string,
	from, to *time.Time,
) ([]TrendPoint, error) {
	log := r.log.Function("Readings")

	var rows []Measurement
	if err := applyDateRange(r.owned(ctx, userID), from, to).
		Select("id", "systolic", "diastolic", "date_of_measurement").
		Order("date_of_measurement ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, log.Err("failed to load readings", err, "userID", userID)
	}

	points := make([]TrendPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, TrendPoint{
			Date:      row.DateOfMeasurement,
			Systolic:  row.Systolic,
			Diastolic: row.Diastolic,
		})
	}

	return points, nil
}

func applyDateRange(query *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		query = query.Where("date_of_measurement >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("date_of_measurement <= ?", to.UTC())
	}
	return query
}

func applyFilter(query *gorm.DB, filter MeasurementFilter) *gorm.DB {
	query = applyDateRange(query, filter.From, filter.To)

	if filter.MinSys != nil {
		query = query.Where("systolic >= ?", *filter.MinSys)
	}
	if filter.MaxSys != nil {
		query = query.Where("systolic <= ?", *filter.MaxSys)
	}
	if filter.MinDia != nil {
		query = query.Where("diastolic >= ?", *filter.MinDia)
	}
	if filter.MaxDia != nil {
		query = query.Where("diastolic <= ?", *filter.MaxDia)
	}
	if filter.Category != nil {
		condition, args := categoryCondition(*filter.Category)
		query = query.Where(condition, args...)
	}

	return query
}

func applyOrder(query *gorm.DB, filter MeasurementFilter) *gorm.DB {
	column := "date_of_measurement"
	switch filter.SortBy {
	case SortBySystolic:
		column = "systolic"
	case SortByDiastolic:
		column = "diastolic"
	}

	desc := filter.Desc == nil || *filter.Desc

	return query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})
}

// categoryCondition is the SQL form of Categorize: each branch excludes
// the ranges claimed by the branches checked before it.
func categoryCondition(category Category) (string, []any) {
	switch category {
	case CategoryHypertensiveCrisis:
		return "(systolic >= ? OR diastolic >= ?)",
			[]any{CrisisSystolic, CrisisDiastolic}
	case CategoryStage2:
		return "(systolic < ? AND diastolic < ? AND (systolic >= ? OR diastolic >= ?))",
			[]any{CrisisSystolic, CrisisDiastolic, Stage2Systolic, Stage2Diastolic}
	case CategoryStage1:
		return "(systolic < ? AND diastolic < ? AND (systolic >= ? OR diastolic >= ?))",
			[]any{Stage2Systolic, Stage2Diastolic, Stage1Systolic, Stage1Diastolic}
	case CategoryElevated:
		return "(systolic < ? AND diastolic < ? AND systolic >= ?)",
			[]any{Stage1Systolic, Stage1Diastolic, ElevatedSystolic}
	case CategoryNormal:
		return "(systolic < ? AND diastolic < ?)",
			[]any{ElevatedSystolic, Stage1Diastolic}
	default:
		return "1 = 0", nil
	}
}
