package search

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError rejects a filter before any request is built.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("search: invalid filter: %s %s", e.Field, e.Reason)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(validateRanges, Filter{})
	return v
}

func validateRanges(sl validator.StructLevel) {
	f := sl.Current().Interface().(Filter)
	check := func(lo, hi int, field, structField string) {
		if lo > 0 && hi > 0 && lo > hi {
			sl.ReportError(lo, field, structField, "lte_max", "")
		}
	}
	check(f.ExperienceMin, f.ExperienceMax, "experienceMin", "ExperienceMin")
	check(f.SalaryMin, f.SalaryMax, "salaryMin", "SalaryMin")
	check(f.AgeMin, f.AgeMax, "ageMin", "AgeMin")
}

// Validate checks f against the tag rules, the range rule and the allowed
// page sizes. The first violation is returned as *ValidationError.
func (f Filter) Validate(pageSizes []int) error {
	if err := validate.Struct(f); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			return toValidationError(ves[0])
		}
		return &ValidationError{Field: "filter", Reason: err.Error()}
	}
	if len(pageSizes) > 0 && !slices.Contains(pageSizes, f.PageSize) {
		return &ValidationError{Field: "pageSize", Reason: fmt.Sprintf("must be one of %v", pageSizes)}
	}
	return nil
}

func toValidationError(fe validator.FieldError) *ValidationError {
	var reason string
	switch fe.Tag() {
	case "gte":
		reason = "must be >= " + fe.Param()
	case "max":
		reason = "must be at most " + fe.Param() + " characters"
	case "oneof":
		reason = "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "lte_max":
		reason = "must not exceed the matching maximum"
	default:
		reason = "failed " + fe.Tag()
	}
	return &ValidationError{Field: fe.Field(), Reason: reason}
}
