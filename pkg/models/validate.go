package models

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json field names so errors match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateCategory checks a category body.
func ValidateCategory(in *CategoryInput) error {
	if in == nil {
		return NewValidationError("", "missing category")
	}
	in.Name = strings.TrimSpace(in.Name)
	return validateStruct(in)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return NewValidationError(fe.Field(), "is required")
		case "max":
			return NewValidationError(fe.Field(), "must be at most "+fe.Param()+" characters")
		default:
			return NewValidationError(fe.Field(), "failed "+fe.Tag()+" check")
		}
	}
	return NewValidationError("", err.Error())
}
