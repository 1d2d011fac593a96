package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an AppError. Every kind except KindInternal is a
// business outcome the caller can act on.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindInactive          ErrorKind = "inactive"
	KindInvalid           ErrorKind = "invalid"
	KindInternal          ErrorKind = "internal"
)

// CodeInternal is reported for every failure that is not an AppError
const CodeInternal = "common.internal_error"

// AppError represents an application error
type AppError struct {
	Kind    ErrorKind              `json:"kind"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Fields  []FieldValidationError `json:"fields,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches two AppErrors by code so wrapped copies still satisfy errors.Is
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e carrying the underlying cause
func (e *AppError) Wrap(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// WithFields returns a copy of e carrying field level validation details
func (e *AppError) WithFields(fields ...FieldValidationError) *AppError {
	cp := *e
	cp.Fields = append([]FieldValidationError(nil), fields...)
	return &cp
}

// NewAppError creates a new AppError
func NewAppError(kind ErrorKind, code, message string, err error) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NotFoundError creates a not_found error
func NotFoundError(code, message string) *AppError {
	return NewAppError(KindNotFound, code, message, nil)
}

// ConflictError creates a conflict error
func ConflictError(code, message string) *AppError {
	return NewAppError(KindConflict, code, message, nil)
}

// InsufficientFundsError creates an insufficient_funds error
func InsufficientFundsError(code, message string) *AppError {
	return NewAppError(KindInsufficientFunds, code, message, nil)
}

// InactiveError creates an inactive error
func InactiveError(code, message string) *AppError {
	return NewAppError(KindInactive, code, message, nil)
}

// InvalidError creates an invalid error
func InvalidError(code, message string) *AppError {
	return NewAppError(KindInvalid, code, message, nil)
}

// InternalError wraps an infrastructure failure
func InternalError(err error) *AppError {
	return NewAppError(KindInternal, CodeInternal, "internal error", err)
}

// GetAppError returns the AppError in err's chain, if any
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

// IsBusinessError reports whether err is a domain outcome rather than an
// infrastructure failure
func IsBusinessError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Kind != KindInternal
}

// HTTPStatus maps an error to the status code the HTTP surface replies with
func HTTPStatus(err error) int {
	appErr := GetAppError(err)
	if appErr == nil {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInsufficientFunds:
		return http.StatusPaymentRequired
	case KindInactive:
		return http.StatusUnprocessableEntity
	case KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
