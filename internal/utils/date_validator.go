package utils

import (
	"strings"
	"time"
)

type DateFormat string

const (
	FormatRFC3339Nano   DateFormat = time.RFC3339Nano
	FormatRFC3339       DateFormat = time.RFC3339
	FormatLocalDateTime DateFormat = "2006-01-02T15:04:05"
	FormatLocalMinutes  DateFormat = "2006-01-02T15:04"
	FormatISO8601Date   DateFormat = "2006-01-02"
)

type DateValidator struct {
	supportedFormats []DateFormat
	location         *time.Location
}

type ValidationResult struct {
	IsValid    bool
	IsDateOnly bool
	ParsedTime time.Time
}

// NewDateValidator accepts RFC3339 timestamps, zone-less timestamps (read
// as UTC, which is what datetime-local inputs send) and plain dates.
func NewDateValidator() *DateValidator {
	return &DateValidator{
		supportedFormats: []DateFormat{
			FormatRFC3339Nano,
			FormatRFC3339,
			FormatLocalDateTime,
			FormatLocalMinutes,
			FormatISO8601Date,
		},
		location: time.UTC,
	}
}

func (dv *DateValidator) ValidateAndConvert(input string) ValidationResult {
	result := ValidationResult{}

	input = strings.TrimSpace(input)
	if input == "" {
		return result
	}

	for _, format := range dv.supportedFormats {
		parsedTime, err := time.ParseInLocation(string(format), input, dv.location)
		if err != nil {
			continue
		}

		result.IsValid = true
		result.IsDateOnly = format == FormatISO8601Date
		result.ParsedTime = parsedTime.UTC()
		return result
	}

	return result
}

// ParseDate parses a single timestamp, returning false when it matches no
// supported format.
func (dv *DateValidator) ParseDate(input string) (time.Time, bool) {
	result := dv.ValidateAndConvert(input)
	return result.ParsedTime, result.IsValid
}

// ParseRangeStart parses the lower bound of an inclusive date range.
func (dv *DateValidator) ParseRangeStart(input string) (time.Time, bool) {
	return dv.ParseDate(input)
}

// ParseRangeEnd parses the upper bound of an inclusive date range. A plain
// date covers that whole day.
func (dv *DateValidator) ParseRangeEnd(input string) (time.Time, bool) {
	result := dv.ValidateAndConvert(input)
	if !result.IsValid {
		return time.Time{}, false
	}
	if result.IsDateOnly {
		return EndOfDay(result.ParsedTime), true
	}
	return result.ParsedTime, true
}

// EndOfDay returns the last representable instant of t's UTC day.
func EndOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
