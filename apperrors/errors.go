package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindPersistence  Kind = "persistence"
	KindUnauthorized Kind = "unauthorized"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, kind Kind, message string, err error) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Validation reports bad client input (400).
func Validation(message string) *Error {
	return New(http.StatusBadRequest, KindValidation, message, nil)
}

// NotFound reports an unknown resource (404).
func NotFound(message string) *Error {
	return New(http.StatusNotFound, KindNotFound, message, nil)
}

// Persistence wraps a storage failure (500).
func Persistence(message string, err error) *Error {
	return New(http.StatusInternalServerError, KindPersistence, message, err)
}

// Unauthorized reports a missing or invalid credential (401).
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, KindUnauthorized, message, nil)
}

// Is reports whether err is an application error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// From converts any error into an *Error, treating unknown errors as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(http.StatusInternalServerError, KindPersistence, "Internal server error", err)
}

// Respond writes err as JSON. Wrapped causes are only exposed outside production.
func Respond(c *gin.Context, err error, env string) {
	appErr := From(err)
	body := gin.H{"error": appErr.Message}
	if appErr.Err != nil && env != "production" {
		body["details"] = appErr.Err.Error()
	}
	c.JSON(appErr.Code, body)
}

// ErrorMiddleware renders the last error attached with c.Error when no
// response has been written yet.
func ErrorMiddleware(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Respond(c, c.Errors.Last().Err, env)
			c.Abort()
		}
	}
}
