package models

import "strings"

type Category string

const (
	CategoryNormal             Category = "Normal"
	CategoryElevated           Category = "Elevated"
	CategoryStage1             Category = "Stage 1"
	CategoryStage2             Category = "Stage 2"
	CategoryHypertensiveCrisis Category = "Hypertensive Crisis"
)

// Threshold values for the classifier. The SQL predicates in the
// measurement repository are built from the same constants.
const (
	CrisisSystolic   = 180
	CrisisDiastolic  = 120
	Stage2Systolic   = 140
	Stage2Diastolic  = 90
	Stage1Systolic   = 130
	Stage1Diastolic  = 80
	ElevatedSystolic = 120
)

// Categories lists every category from lowest to highest risk.
var Categories = []Category{
	CategoryNormal,
	CategoryElevated,
	CategoryStage1,
	CategoryStage2,
	CategoryHypertensiveCrisis,
}

// Categorize classifies a reading. Checks run in order and the first match
// wins, so every pair lands in exactly one category.
func Categorize(systolic, diastolic int) Category {
	switch {
	case systolic >= CrisisSystolic || diastolic >= CrisisDiastolic:
		return CategoryHypertensiveCrisis
	case systolic >= Stage2Systolic || diastolic >= Stage2Diastolic:
		return CategoryStage2
	case systolic >= Stage1Systolic || diastolic >= Stage1Diastolic:
		return CategoryStage1
	case systolic >= ElevatedSystolic && diastolic < Stage1Diastolic:
		return CategoryElevated
	default:
		return CategoryNormal
	}
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, category := range Categories {
		if strings.EqualFold(string(category), name) {
			return category, true
		}
	}
	return "", false
}

// CSSClass is the badge class the dashboard uses for a category.
func (c Category) CSSClass() string {
	switch c {
	case CategoryNormal:
		return "bg-success"
	case CategoryElevated:
		return "bg-warning text-dark"
	case CategoryStage1:
		return "bg-info text-dark"
	case CategoryStage2:
		return "bg-danger"
	case CategoryHypertensiveCrisis:
		return "bg-dark"
	default:
		return "bg-secondary"
	}
}
