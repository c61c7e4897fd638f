package common

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Error returns a combined error message
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(messages, "; "))
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	case *string:
		if v == nil || strings.TrimSpace(*v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	}
	return nil
}

func MaxLength(fieldName string, value interface{}, max int) *ValidationError {
	str, ok := value.(string)
	if !ok {
		if strPtr, ok := value.(*string); ok && strPtr != nil {
			str = *strPtr
		} else {
			return nil
		}
	}

	if utf8.RuneCountInString(str) > max {
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: fmt.Sprintf("must be at most %d characters", max),
		}
	}
	return nil
}

func UUID(fieldName string, value interface{}) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}

	if _, err := uuid.Parse(str); err != nil {
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: "must be a valid UUID",
		}
	}
	return nil
}

// DateYMD accepts YYYY-MM-DD strings; nil and empty values pass so it can
// be combined with Required.
func DateYMD(fieldName string, value interface{}) *ValidationError {
	var str string
	switch v := value.(type) {
	case string:
		str = v
	case *string:
		if v == nil {
			return nil
		}
		str = *v
	default:
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	if str == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", str); err != nil {
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: "must be a date in YYYY-MM-DD format",
		}
	}
	return nil
}

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func Email(fieldName string, value interface{}) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	if str != "" && !emailRegex.MatchString(str) {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a valid e-mail address"}
	}
	return nil
}

// OneOf builds a rule accepting only the listed values.
func OneOf(allowed ...string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, _ := value.(string)
		for _, a := range allowed {
			if str == a {
				return nil
			}
		}
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: fmt.Sprintf("must be one of %s", strings.Join(allowed, ", ")),
		}
	}
}

// Max binds a length limit to MaxLength.
func Max(max int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		return MaxLength(fieldName, value, max)
	}
}

// ValidateAndReturnError validates and returns InvalidArgumentError if validation fails
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return InvalidArgumentError(validator.ErrorMessage())
	}
	return nil
}
