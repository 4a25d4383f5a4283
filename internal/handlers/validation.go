package handlers

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/BradenHooton/ticketdesk/internal/models"
	"github.com/go-playground/validator/v10"
)

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so clients can map messages to inputs
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("complaint_status", func(fl validator.FieldLevel) bool {
		_, err := models.ParseStatus(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("complaint_category", func(fl validator.FieldLevel) bool {
		_, err := models.ParseCategory(fl.Field().String())
		return err == nil
	})

	return v
}

// ValidateRequest validates a request struct using go-playground/validator and
// collects every failure per field. It returns nil when the request is valid.
func ValidateRequest(req any) *models.ValidationError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	verr := &models.ValidationError{}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		verr.Add("request", "The request is invalid.")
		return verr
	}
	for _, fe := range ve {
		verr.Add(fe.Field(), formatValidationError(fe))
	}
	return verr
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", field)
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", field, fe.Param())
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s confirmation does not match.", strings.TrimSuffix(field, " confirmation"))
	case "complaint_status":
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "complaint_category", "oneof":
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "datetime":
		return fmt.Sprintf("The %s is not a valid date.", field)
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
