package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"journeyrewards/internal/repositories"
)

// ===============================
// DOMAIN ERRORS
// ===============================

var (
	// ErrUserNotFound is returned when an operation names a missing user
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateAward means the (user, badge) pair already exists. The
	// evaluator swallows it; it never reaches a caller.
	ErrDuplicateAward = errors.New("badge already awarded")
	// ErrStoreUnavailable wraps every persistence failure
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ===============================
// ERROR TYPES
// ===============================

// ServiceError represents a structured service error
type ServiceError struct {
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// GetStatusCode returns the HTTP status code for this error
func (e *ServiceError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// ===============================
// ERROR CONSTRUCTORS
// ===============================

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "NOT_FOUND",
		Message:    message,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// NewConflictError creates a conflict error
func NewConflictError(message, code string) *ServiceError {
	return &ServiceError{
		Type:       "CONFLICT",
		Message:    message,
		Code:       code,
		StatusCode: http.StatusConflict,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "SERVICE_UNAVAILABLE",
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// NewMethodNotAllowedError creates an error for a route hit with the wrong verb
func NewMethodNotAllowedError(method string) *ServiceError {
	return &ServiceError{
		Type:       "METHOD_NOT_ALLOWED",
		Message:    "method not allowed",
		StatusCode: http.StatusMethodNotAllowed,
		Details:    map[string]interface{}{"method": method},
	}
}

// userNotFound builds the error returned for a missing user
func userNotFound(userID int64) *ServiceError {
	err := NewNotFoundError("user not found", ErrUserNotFound)
	err.Details = map[string]interface{}{"user_id": userID}
	return err
}

// storeFailure translates a repository error. Not-found becomes
// ErrUserNotFound; everything else becomes ErrStoreUnavailable with the
// driver error kept in the chain.
func storeFailure(op string, userID int64, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return userNotFound(userID)
	}
	return NewInternalError("failed to "+op, fmt.Errorf("%w: %w", ErrStoreUnavailable, err))
}

// ===============================
// SPECIALIZED ERRORS
// ===============================

// BadgeFailure is one badge the evaluator could not process
type BadgeFailure struct {
	BadgeName string `json:"badge_name"`
	Err       error  `json:"-"`
}

// BadgeEvaluationError collects per-badge failures of one evaluation run.
// The badges that did succeed are returned alongside it.
type BadgeEvaluationError struct {
	UserID   int64
	Failures []BadgeFailure
}

// Error implements the error interface
func (e *BadgeEvaluationError) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.BadgeName
	}
	return fmt.Sprintf("badge evaluation for user %d failed for %d badge(s): %s",
		e.UserID, len(e.Failures), strings.Join(names, ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As
func (e *BadgeEvaluationError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// ===============================
// ERROR UTILITIES
// ===============================

// GetServiceError extracts a ServiceError from an error, or creates a
// generic internal one. Store failures map to a generic message.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	if errors.Is(err, ErrUserNotFound) {
		return NewNotFoundError("user not found", err)
	}
	return NewInternalError("internal server error", err)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetServiceError(err).Type == "NOT_FOUND"
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetServiceError(err).Type == "VALIDATION_ERROR"
}
