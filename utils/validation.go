package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// CodeInvalidPayload is reported when a request body fails validation
const CodeInvalidPayload = "common.invalid_payload"

// FieldValidationError represents a validation error for a specific field
type FieldValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldValidationErrors represents multiple field validation errors
type FieldValidationErrors []FieldValidationError

// Error implements the error interface
func (e FieldValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

// jsonFieldName reports fields under the name clients send them with
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

// ValidatePayload runs the binding tags of v through gin's validator and
// converts failures into an invalid AppError with per-field details
func ValidatePayload(v interface{}) error {
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return InvalidPayload(err)
	}
	return nil
}

// InvalidPayload converts a binding or decoding failure into an AppError
func InvalidPayload(err error) error {
	if IsAppError(err) {
		return err
	}
	base := InvalidError(CodeInvalidPayload, "invalid payload")
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return base.Wrap(err)
	}
	fields := make([]FieldValidationError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldValidationError{
			Field:   lowerFirst(fe.Field()),
			Message: fieldMessage(fe),
		})
	}
	return base.WithFields(fields...)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "uuid", "uuid4":
		return "must be a valid uuid"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// ValidateStringLength checks that str is between min and max characters
func ValidateStringLength(str string, min, max int) error {
	length := len(strings.TrimSpace(str))
	if length < min {
		return fmt.Errorf("must be at least %d characters", min)
	}
	if length > max {
		return fmt.Errorf("must be at most %d characters", max)
	}
	return nil
}
