package common

import (
	"errors"
	"net/http"
)

// Error codes carried by AppError. Handlers only ever show Message to the
// register; Code is for logs and for callers that branch on the failure kind.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternal           = "INTERNAL"
)

// AppError is a failure that already knows how the register should see it.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError builds an AppError; err may be nil for purely user-facing failures.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// HasCode reports whether err wraps an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// StatusOf maps err to the status and message a handler should answer with.
// Errors that are not AppErrors, or that lack a message, fall back to
// 500 and fallback. The third return is true for server-side failures the
// caller should log.
func StatusOf(err error, fallback string) (int, string, bool) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, fallback, true
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	message := appErr.Message
	if message == "" {
		message = fallback
	}
	return status, message, status >= http.StatusInternalServerError
}
