package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/rental-booking/internal/model"
)

var phoneRE = regexp.MustCompile(`^(?:\+255|0)[67][0-9]\d{7}$`)

// Validator wraps go-playground/validator with the rules used by request
// structs: "tzphone" for Tanzanian phone numbers, "nida" for national id
// numbers and "amount" for decimal money strings.  It also satisfies
// echo.Validator.
type Validator struct {
	v *validator.Validate
}

// NewValidator registers the custom rules and reports field names by
// their json tag.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			name, _, _ = strings.Cut(f.Tag.Get("form"), ",")
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "tzphone", func(fl validator.FieldLevel) bool {
		return phoneRE.MatchString(fl.Field().String())
	})
	mustRegister(v, "nida", func(fl validator.FieldLevel) bool {
		return ValidNIDA(fl.Field().String())
	})
	mustRegister(v, "amount", func(fl validator.FieldLevel) bool {
		_, err := model.ParseAmount(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "date", func(fl validator.FieldLevel) bool {
		_, err := model.ParseDate(fl.Field().String())
		return err == nil
	})
	return &Validator{v: v}
}

// mustRegister panics when a rule cannot be registered, so a broken tag
// fails at startup instead of skipping validation.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validator: register %q: %v", tag, err))
	}
}

// Validate checks s and returns a *ValidationError listing every failed
// field.  Field paths drop the top-level struct name.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := fieldErrors{}
	for _, e := range verrs {
		ns := e.Namespace()
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		fe.add(ns, message(e))
	}
	return fe.err()
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "tzphone":
		return "enter a valid Tanzanian phone number (e.g. +255712345678 or 0712345678)"
	case "nida":
		return "NIDA number must be 20 digits starting with a valid YYYYMMDD date"
	case "amount":
		return "enter an amount with at most two decimal places"
	case "date":
		return "enter a date as YYYY-MM-DD"
	case "oneof":
		return "must be one of: " + e.Param()
	case "nefield":
		return "must differ from " + e.Param()
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", e.Param())
	}
	return "invalid value"
}

// ValidNIDA reports whether s is a 20 digit national id number whose first
// eight digits form a real YYYYMMDD date.
func ValidNIDA(s string) bool {
	if len(s) != 20 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	_, err := time.Parse("20060102", s[:8])
	return err == nil
}
