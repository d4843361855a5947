package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// Report fields by their wire name so messages match the request payload.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError describes the first struct field that failed a rule.
type FieldError struct {
	Field string
	Tag   string
}

// First runs struct validation and returns the first failing field, or nil.
// Validation order follows struct field order.
func First(req any) *FieldError {
	err := defaultValidator.Struct(req)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return &FieldError{}
	}
	fe := validationErrs[0]
	field := fe.Field()
	if field == "" {
		field = fe.StructField()
	}
	return &FieldError{Field: field, Tag: fe.ActualTag()}
}

// Message converts a field error into a human-readable message.
func (fe *FieldError) Message() string {
	if fe == nil || fe.Field == "" {
		return "invalid request body"
	}
	switch fe.Tag {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field)
	case "notblank":
		return fmt.Sprintf("%s must not be blank", fe.Field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field)
	case "url":
		return fmt.Sprintf("%s must be a valid url", fe.Field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid uuid", fe.Field)
	default:
		return fmt.Sprintf("%s is invalid", fe.Field)
	}
}
