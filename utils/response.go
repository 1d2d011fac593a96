package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody describes a failed outcome inside a StandardResponse
type ErrorBody struct {
	Kind    ErrorKind              `json:"kind"`
	Message string                 `json:"message"`
	Fields  []FieldValidationError `json:"fields,omitempty"`
}

// StandardResponse is the envelope shared by the HTTP surface and queue replies
type StandardResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// NewSuccess builds a success envelope
func NewSuccess(code string, data interface{}) StandardResponse {
	return StandardResponse{
		Success: true,
		Code:    code,
		Data:    data,
	}
}

// NewFailure builds a failure envelope. Errors that are not AppErrors are
// reported as internal without leaking their text.
func NewFailure(err error) StandardResponse {
	appErr := GetAppError(err)
	if appErr == nil || appErr.Kind == KindInternal {
		return StandardResponse{
			Code:  CodeInternal,
			Error: &ErrorBody{Kind: KindInternal, Message: "internal error"},
		}
	}
	return StandardResponse{
		Code: appErr.Code,
		Error: &ErrorBody{
			Kind:    appErr.Kind,
			Message: appErr.Message,
			Fields:  appErr.Fields,
		},
	}
}

// Success sends a standardized success response
func Success(c *gin.Context, code string, data interface{}) {
	c.JSON(http.StatusOK, NewSuccess(code, data))
}

// Created sends a standardized created response (201)
func Created(c *gin.Context, code string, data interface{}) {
	c.JSON(http.StatusCreated, NewSuccess(code, data))
}

// Fail sends a standardized failure response with the status matching err
func Fail(c *gin.Context, err error) {
	c.JSON(HTTPStatus(err), NewFailure(err))
}

// Unauthorized sends a 401 Unauthorized response
func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, StandardResponse{
		Code:  "auth.unauthorized",
		Error: &ErrorBody{Kind: KindInvalid, Message: message},
	})
}

// Forbidden sends a 403 Forbidden response
func Forbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, StandardResponse{
		Code:  "auth.forbidden",
		Error: &ErrorBody{Kind: KindInvalid, Message: message},
	})
}
