package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

const isoDate = "2006-01-02"

// requestValidator adapts go-playground/validator to echo.Validator. Field
// names in messages are the JSON names clients send.
type requestValidator struct {
	v *validator.Validate
}

// NewValidator returns a validator with the portal's custom tags:
//
//	role     one of patient, admin, provider
//	isodate  a YYYY-MM-DD calendar date
func NewValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return domain.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(isoDate, fl.Field().String())
		return err == nil
	})
	return &requestValidator{v: v}
}

func (rv *requestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return f.Name
	}
	return name
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "role":
		return field + " must be one of: patient admin provider"
	case "isodate":
		return field + " must be a date in YYYY-MM-DD form"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
