// Package errors provides a typed application error used across the
// inspector and indexer so that callers (CLI entrypoints, the metrics
// and health HTTP handlers) can distinguish parse-time, source-level
// and index-level failures without string matching.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorType classifies an AppError for logging and for the health/metrics
// HTTP surface.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeParse       ErrorType = "PARSE_ERROR"
	ErrorTypeSource      ErrorType = "SOURCE_ERROR"
	ErrorTypeIndex       ErrorType = "INDEX_ERROR"
	ErrorTypeInternal    ErrorType = "INTERNAL_ERROR"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
)

// AppError represents an application error with additional context.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails attaches structured context to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCode attaches a stable machine-readable code to the error.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// New creates a new AppError.
func New(errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{Type: errType, Message: message, HTTPStatus: httpStatus}
}

// Wrap wraps an existing error.
func Wrap(err error, errType ErrorType, message string, httpStatus int) *AppError {
	return &AppError{Type: errType, Message: message, HTTPStatus: httpStatus, Err: err}
}

// NewValidationError creates a config/flag validation error.
func NewValidationError(message string) *AppError {
	return New(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewNotFoundError creates a not-found error, e.g. a missing index
// sidecar file or an out-of-range slice boundary.
func NewNotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// WrapParseError wraps a packet- or PES-level parse failure. Parse
// errors never terminate ingest; they are logged and the packet is
// skipped.
func WrapParseError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeParse, message, http.StatusUnprocessableEntity)
}

// WrapSourceError wraps a packet source read failure. Unlike parse
// errors, source errors terminate ingest with a non-zero exit.
func WrapSourceError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeSource, message, http.StatusBadGateway)
}

// WrapIndexError wraps a PCR index build, load or query failure.
func WrapIndexError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeIndex, message, http.StatusInternalServerError)
}

// NewInternalError creates a generic internal error.
func NewInternalError(message string) *AppError {
	return New(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// WrapInternalError wraps an error as an internal error.
func WrapInternalError(err error, message string) *AppError {
	return Wrap(err, ErrorTypeInternal, message, http.StatusInternalServerError)
}

// NewTimeoutError creates a timeout error, e.g. a source read that never
// unblocks.
func NewTimeoutError(message string) *AppError {
	return New(ErrorTypeTimeout, message, http.StatusRequestTimeout)
}

// IsType reports whether err is an *AppError of the given type.
func IsType(err error, t ErrorType) bool {
	ae, ok := err.(*AppError)
	return ok && ae.Type == t
}
