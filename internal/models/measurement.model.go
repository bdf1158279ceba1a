package models

import (
	"math"
	"strings"
	"time"
)

const (
	MinSystolic  = 20
	MaxSystolic  = 400
	MinDiastolic = 10
	MaxDiastolic = 300
	MaxNotesLen  = 512
)

type Measurement struct {
	ID                int        `gorm:"type:int;primaryKey;autoIncrement" json:"id"`
	Systolic          int        `gorm:"not null"                          json:"systolic"`
	Diastolic         int        `gorm:"not null"                          json:"diastolic"`
	DateOfMeasurement time.Time  `gorm:"not null;index"                    json:"dateOfMeasurement"`
	Pulse             *int       `gorm:"type:int"                          json:"pulse"`
	Notes             *string    `gorm:"type:varchar(512)"                 json:"notes"`
	PostureID         *int       `gorm:"type:int"                          json:"postureId"`
	Posture           *Posture   `gorm:"foreignKey:PostureID"              json:"posture,omitempty"`
	UserID            string     `gorm:"type:varchar(64);not null;index"   json:"userId"`
	CreatedAt         time.Time  `gorm:"not null"                          json:"createdAt"`
	UpdatedAt         *time.Time `gorm:"autoUpdateTime:false"              json:"updatedAt"`
	IsDeleted         bool       `gorm:"not null;default:false"            json:"-"`
}

func (Measurement) TableName() string {
	return "measurements"
}

// Category is derived on every read and never persisted.
func (m Measurement) Category() Category {
	return Categorize(m.Systolic, m.Diastolic)
}

// MeasurementInput carries the user editable fields for create and update.
type MeasurementInput struct {
	Systolic          int
	Diastolic         int
	DateOfMeasurement time.Time
	Pulse             *int
	Notes             *string
	PostureID         *int
}

type MeasurementListItem struct {
	ID                int        `json:"id"`
	Systolic          int        `json:"systolic"`
	Diastolic         int        `json:"diastolic"`
	DateOfMeasurement time.Time  `json:"dateOfMeasurement"`
	Category          Category   `json:"category"`
	CategoryClass     string     `json:"categoryClass"`
	PostureID         *int       `json:"postureId"`
	Posture           *string    `json:"posture"`
	Pulse             *int       `json:"pulse"`
	Notes             *string    `json:"notes"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         *time.Time `json:"updatedAt"`
}

func (m Measurement) ListItem() MeasurementListItem {
	category := m.Category()
	item := MeasurementListItem{
		ID:                m.ID,
		Systolic:          m.Systolic,
		Diastolic:         m.Diastolic,
		DateOfMeasurement: m.DateOfMeasurement,
		Category:          category,
		CategoryClass:     category.CSSClass(),
		PostureID:         m.PostureID,
		Pulse:             m.Pulse,
		Notes:             m.Notes,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.Posture != nil {
		item.Posture = &m.Posture.Name
	}
	return item
}

type SortKey string

const (
	SortByDate      SortKey = "date"
	SortBySystolic  SortKey = "systolic"
	SortByDiastolic SortKey = "diastolic"
)

// ParseSortKey accepts any casing and falls back to date.
func ParseSortKey(value string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(value))) {
	case SortBySystolic:
		return SortBySystolic
	case SortByDiastolic:
		return SortByDiastolic
	default:
		return SortByDate
	}
}

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// MeasurementFilter narrows a listing. Every pointer field is optional and
// a nil value imposes no constraint; set fields combine with AND.
type MeasurementFilter struct {
	From     *time.Time
	To       *time.Time
	MinSys   *int
	MaxSys   *int
	MinDia   *int
	MaxDia   *int
	Category *Category
	SortBy   SortKey
	Desc     *bool
	Page     int
	PageSize int
}

// Normalize fills defaults: date, descending, page 1, ten per page. The page
// size is taken as given; bounding it is left to the caller.
func (f MeasurementFilter) Normalize() MeasurementFilter {
	switch f.SortBy {
	case SortBySystolic, SortByDiastolic:
	default:
		f.SortBy = SortByDate
	}

	if f.Desc == nil {
		desc := true
		f.Desc = &desc
	}

	if f.Page < 1 {
		f.Page = DefaultPage
	}

	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}

	return f
}

// Offset saturates at math.MaxInt so a page far past the end stays past the
// end instead of wrapping back to the first rows.
func (f MeasurementFilter) Offset() int {
	if f.Page < 1 || f.PageSize < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.PageSize {
		return math.MaxInt
	}
	return (f.Page - 1) * f.PageSize
}

type TrendPoint struct {
	Date      time.Time `json:"date"`
	Systolic  int       `json:"systolic"`
	Diastolic int       `json:"diastolic"`
}
