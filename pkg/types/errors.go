package types

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeMethod         ErrorType = "method_not_allowed"
	ErrorTypeInternal       ErrorType = "internal"
)

// PosError is the structured error returned by repositories and handlers
type PosError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *PosError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *PosError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *PosError {
	return &PosError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(code, message string) *PosError {
	return &PosError{
		Type:    ErrorTypeAuthentication,
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *PosError {
	return &PosError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(code, message string, cause error) *PosError {
	return &PosError{
		Type:    ErrorTypeConflict,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(message string) *PosError {
	return &PosError{
		Type:    ErrorTypeRateLimit,
		Code:    ErrCodeRateLimitExceeded,
		Message: message,
	}
}

// NewMethodNotAllowedError is returned for a known path requested with the wrong method
func NewMethodNotAllowedError(method string) *PosError {
	return &PosError{
		Type:    ErrorTypeMethod,
		Code:    ErrCodeMethodNotAllowed,
		Message: "Method " + method + " not allowed",
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *PosError {
	return &PosError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// AsPosError unwraps err into a *PosError if one is in the chain
func AsPosError(err error) (*PosError, bool) {
	var posErr *PosError
	if errors.As(err, &posErr) {
		return posErr, true
	}
	return nil, false
}

// IsType reports whether err carries a PosError of the given type
func IsType(err error, t ErrorType) bool {
	posErr, ok := AsPosError(err)
	return ok && posErr.Type == t
}

// Common error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeInvalidID          = "INVALID_ID"
	ErrCodeInvalidDate        = "INVALID_DATE"
	ErrCodeInvalidTime        = "INVALID_TIME"
	ErrCodeMissingSearch      = "MISSING_SEARCH"
	ErrCodeNoUpdates          = "NO_UPDATES"
	ErrCodeUserExists         = "USER_EXISTS"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeSessionInvalid     = "SESSION_INVALID"
	ErrCodeSessionExists      = "SESSION_EXISTS"
	ErrCodeSessionNotFound    = "SESSION_NOT_FOUND"
	ErrCodePatientNotFound    = "PATIENT_NOT_FOUND"
	ErrCodeAppointmentMissing = "APPOINTMENT_NOT_FOUND"
	ErrCodeTaskNotFound       = "TASK_NOT_FOUND"
	ErrCodeTasksNotFound      = "TASKS_NOT_FOUND"
	ErrCodeRouteNotFound      = "ROUTE_NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)
