// Package validation holds the field checks applied when sanitizing user input.
// Checks return *ValidationError (nil when valid) so callers can drop the
// offending field and keep going instead of rejecting the whole write.
package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MinRating       = 1
	MaxRating       = 10
	MaxNoteLength   = 500
	MaxKeyEvents    = 10
	MaxEventLength  = 200
	MaxMetricIDSize = 64
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// Err joins the accumulated errors, or returns nil.
func (c *Collector) Err() error {
	if len(c.errors) == 0 {
		return nil
	}
	errs := make([]error, len(c.errors))
	for i, e := range c.errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// ValidateUTF8 returns an error if the value is not valid UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be valid UTF-8",
		}
	}
	return nil
}

// ValidateNoNullBytes returns an error if the value contains null bytes.
func ValidateNoNullBytes(field, value string) *ValidationError {
	if strings.Contains(value, "\x00") {
		return &ValidationError{
			Field:   field,
			Message: "must not contain null bytes",
		}
	}
	return nil
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateEnum returns an error if the value is not in the allowed list.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateRange returns an error if the value is outside [min, max].
func ValidateRange(field string, value, min, max float64) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %.1f and %.1f", min, max),
		}
	}
	return nil
}

// ValidateRating checks that value is a finite whole number in [1,10].
func ValidateRating(field string, value float64) *ValidationError {
	if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be a whole number",
		}
	}
	return ValidateRange(field, value, MinRating, MaxRating)
}

var metricIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`)

// ValidateMetricID checks the shape of a metric identifier (snake_case).
func ValidateMetricID(field, value string) *ValidationError {
	if len(value) == 0 || len(value) > MaxMetricIDSize || !metricIDPattern.MatchString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be lowercase snake_case, at most 64 characters",
		}
	}
	return nil
}

// ValidateNote checks a free-text metric annotation.
func ValidateNote(field, value string) *ValidationError {
	if err := ValidateUTF8(field, value); err != nil {
		return err
	}
	if err := ValidateNoNullBytes(field, value); err != nil {
		return err
	}
	return ValidateMaxLength(field, value, MaxNoteLength)
}

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs the `validate` struct tags on v and converts failures
// into ValidationErrors keyed by the struct namespace (e.g. "Goal.TargetValue").
func ValidateStruct(v any) []ValidationError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   trimRootNamespace(fe.Namespace()),
			Message: describeTag(fe),
		})
	}
	return out
}

func trimRootNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "max":
		return fmt.Sprintf("exceeds maximum of %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
