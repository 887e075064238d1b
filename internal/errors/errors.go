package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the failure categories of the extraction and reporting pipeline
type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeUnreadableInput     ErrorType = "unreadable_input"
	ErrorTypeExtractionEmpty     ErrorType = "extraction_empty"
	ErrorTypeUpstreamUnavailable ErrorType = "upstream_unavailable"
	ErrorTypeMalformedResponse   ErrorType = "malformed_response"
	ErrorTypeWriteFailure        ErrorType = "write_failure"
	ErrorTypeNoRecords           ErrorType = "no_records"
	ErrorTypeTimeout             ErrorType = "timeout"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeInternal            ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of the error carrying extra detail text
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func newError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewUnreadableInputError reports a corrupt or unsupported image
func NewUnreadableInputError(message string, cause error) *AppError {
	return newError(ErrorTypeUnreadableInput, http.StatusUnprocessableEntity, message, cause)
}

// NewExtractionEmptyError reports that recognition produced nothing usable
func NewExtractionEmptyError(message string, cause error) *AppError {
	return newError(ErrorTypeExtractionEmpty, http.StatusUnprocessableEntity, message, cause)
}

// NewUpstreamUnavailableError reports an unreachable or misconfigured engine or model
func NewUpstreamUnavailableError(message string, cause error) *AppError {
	return newError(ErrorTypeUpstreamUnavailable, http.StatusBadGateway, message, cause)
}

// NewMalformedResponseError reports a model reply that does not fit the expected schema
func NewMalformedResponseError(message string, cause error) *AppError {
	return newError(ErrorTypeMalformedResponse, http.StatusBadGateway, message, cause)
}

// NewWriteFailureError reports an output artifact that could not be written
func NewWriteFailureError(message string, cause error) *AppError {
	return newError(ErrorTypeWriteFailure, http.StatusInternalServerError, message, cause)
}

// NewNoRecordsError reports a batch that produced zero usable records
func NewNoRecordsError(message string, cause error) *AppError {
	return newError(ErrorTypeNoRecords, http.StatusUnprocessableEntity, message, cause)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return newError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// IsType checks if any error in the chain is an AppError of the given type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
