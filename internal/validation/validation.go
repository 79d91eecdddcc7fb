// Package validation validates request input shapes and converts failures
// into 400 store errors carrying the first failing field's message.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/leafnote/leafnote-server/internal/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" || name == "-" {
			return fld.Name
		}
		for i := 0; i < len(name); i++ {
			if name[i] == ',' {
				return name[:i]
			}
		}
		return name
	})

	return v
}

// Struct validates s against its validate tags. Inputs should be
// normalized (trimmed) first so a whitespace-only field fails required.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	if len(validationErrs) == 0 {
		return err
	}
	return store.Validation(message(validationErrs[0]))
}

func message(e validator.FieldError) string {
	field := titleCase(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
