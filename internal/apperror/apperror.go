// Package apperror defines the error taxonomy shared by services and handlers.
// Services return *AppError values; handlers turn them into the
// {success: false, error} response shape.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeQuotaExceeded Code = "QUOTA_EXCEEDED"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeGeneration    Code = "UPSTREAM_GENERATION_ERROR"
	CodePayment       Code = "UPSTREAM_PAYMENT_ERROR"
	CodeAssembly      Code = "ASSEMBLY_ERROR"
	CodeStorage       Code = "STORAGE_ERROR"
	CodeInternal      Code = "INTERNAL_ERROR"
)

// AppError carries a client-safe message and the wrapped cause, which is
// only ever logged.
type AppError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError with the status mapped from code
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: statusFor(code)}
}

// Wrap creates an AppError that keeps err as its cause
func Wrap(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: statusFor(code), Err: err}
}

func Validation(message string) *AppError { return New(CodeValidation, message) }

func Unauthorized(message string) *AppError { return New(CodeUnauthorized, message) }

func Forbidden(message string) *AppError { return New(CodeForbidden, message) }

func NotFound(message string) *AppError { return New(CodeNotFound, message) }

func Conflict(message string) *AppError { return New(CodeConflict, message) }

func Internal(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", err)
}

// Generation reports a failed or empty LLM completion
func Generation(err error) *AppError {
	return Wrap(CodeGeneration, "failed to generate document", err)
}

// Assembly reports a failure while building an export artifact
func Assembly(err error) *AppError {
	return Wrap(CodeAssembly, "Failed to export document", err)
}

// QuotaExceeded reports an exhausted monthly plan allowance
func QuotaExceeded(message string) *AppError { return New(CodeQuotaExceeded, message) }

func RateLimited() *AppError { return New(CodeRateLimited, "Rate limit exceeded") }

// Payment reports a gateway call that failed before any state changed
func Payment(message string, err error) *AppError {
	return Wrap(CodePayment, message, err)
}

func Storage(err error) *AppError {
	return Wrap(CodeStorage, "Failed to store document", err)
}

// As extracts an *AppError from err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code
func HasCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

func statusFor(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeQuotaExceeded:
		return http.StatusPaymentRequired
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodePayment:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
