package middleware

import (
	"github.com/go-playground/validator/v10"
)

// formatValidationError creates a human-readable validation error message
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "email":
		return e.Field() + " must be a valid email address"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "password":
		return e.Field() + " must be at least 8 characters and contain a letter and a digit"
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}
