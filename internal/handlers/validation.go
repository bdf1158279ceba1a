package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ValidationErrors maps a request field to the reason it was rejected.
type ValidationErrors map[string]string

func (v ValidationErrors) Add(field, reason string) {
	if _, exists := v[field]; !exists {
		v[field] = reason
	}
}

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for field, reason := range v {
		parts = append(parts, field+": "+reason)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct's validate tags and converts failures to
// per-field reasons.
func validateStruct(value any) ValidationErrors {
	errs := ValidationErrors{}

	err := validate.Struct(value)
	if err == nil {
		return errs
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		errs.Add("body", err.Error())
		return errs
	}

	for _, fieldError := range fieldErrors {
		errs.Add(fieldError.Field(), describe(fieldError))
	}

	return errs
}

func describe(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		if fieldError.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fieldError.Param())
		}
		return "must be at least " + fieldError.Param()
	case "max", "lte":
		if fieldError.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fieldError.Param())
		}
		return "must be at most " + fieldError.Param()
	case "email":
		return "must be a valid email address"
	default:
		return "is invalid"
	}
}

func validationFailed(c *fiber.Ctx, errs ValidationErrors) error {
	return c.Status(fiber.StatusBadRequest).
		JSON(fiber.Map{"message": "validation failed", "errors": errs})
}
