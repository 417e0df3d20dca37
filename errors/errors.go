package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorCode identifies the failure class carried by an AppError.
type ErrorCode string

const (
	ErrorCode_INTERNAL           ErrorCode = "INTERNAL"
	ErrorCode_INVALID_ARGUMENT   ErrorCode = "INVALID_ARGUMENT"
	ErrorCode_NOT_FOUND          ErrorCode = "NOT_FOUND"
	ErrorCode_ALREADY_EXISTS     ErrorCode = "ALREADY_EXISTS"
	ErrorCode_PERMISSION_DENIED  ErrorCode = "PERMISSION_DENIED"
	ErrorCode_UNAUTHENTICATED    ErrorCode = "UNAUTHENTICATED"
	ErrorCode_INVALID_SIGNATURE  ErrorCode = "INVALID_SIGNATURE"
	ErrorCode_INVALID_PAYLOAD    ErrorCode = "INVALID_PAYLOAD"
	ErrorCode_MEETING_NOT_FOUND  ErrorCode = "MEETING_NOT_FOUND"
	ErrorCode_ENQUEUE_FAILED     ErrorCode = "ENQUEUE_FAILED"
	ErrorCode_STAGE_FAILED       ErrorCode = "STAGE_FAILED"
	ErrorCode_PROVIDER_FAILED    ErrorCode = "PROVIDER_FAILED"
	ErrorCode_PERSISTENCE_FAILED ErrorCode = "PERSISTENCE_FAILED"
)

func (c ErrorCode) String() string { return string(c) }

// AppError is the custom error type carried across layer boundaries.
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/As chains.
func (e AppError) Unwrap() error { return e.Raw }

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General Errors
func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_NOT_FOUND,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

func ErrAlreadyExists(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     ErrorCode_ALREADY_EXISTS,
		Message:  fmt.Sprintf("%s already exists", resource),
	}
}

func ErrPermissionDenied(action string) AppError {
	return AppError{
		HTTPCode: http.StatusForbidden,
		Code:     ErrorCode_PERMISSION_DENIED,
		Message:  fmt.Sprintf("Permission denied: %s", action),
	}
}

func ErrUnauthenticated() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_UNAUTHENTICATED,
		Message:  "Authentication required",
	}
}

// Webhook / dispatch boundary errors

// ErrInvalidSignature rejects a request whose HMAC signature does not match.
// This is a security boundary failure, never retried by the pipeline.
func ErrInvalidSignature() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_INVALID_SIGNATURE,
		Message:  "Invalid webhook signature",
	}
}

func ErrInvalidPayload(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_PAYLOAD,
		Message:  "Invalid payload",
	}
}

// ErrMeetingNotFound is terminal for the sender: a retry cannot make an
// unknown bot ID resolve, so callers map it to a non-retryable response.
func ErrMeetingNotFound(botID string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_MEETING_NOT_FOUND,
		Message:  "No meeting found for bot",
		Details:  map[string]string{"bot_id": botID},
	}
}

// Pipeline errors

func ErrEnqueueFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_ENQUEUE_FAILED,
		Message:  "Failed to enqueue processing job",
	}
}

func ErrStageFailed(stage string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_STAGE_FAILED,
		Message:  fmt.Sprintf("Enrichment stage %s failed", stage),
	}
}

func ErrProviderFailed(provider string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_PROVIDER_FAILED,
		Message:  fmt.Sprintf("External provider %s failed", provider),
	}
}

func ErrPersistenceFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_PERSISTENCE_FAILED,
		Message:  "Database operation failed",
	}
}
