package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal      = "INTERNAL_ERROR"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeStateConflict = "STATE_CONFLICT"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeDatabase      = "DATABASE_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnknownRule   = "UNKNOWN_RULE_TYPE"
	ErrCodeContextBuild  = "CONTEXT_BUILD_ERROR"
	ErrCodeDelivery      = "DELIVERY_ERROR"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// StateConflict creates a state-conflict error for an illegal lifecycle
// transition. The message names the status the entity is currently in so the
// caller can see why the transition was rejected.
func StateConflict(message string) *AppError {
	return New(ErrCodeStateConflict, message, http.StatusConflict)
}

// RateLimited creates a too-many-requests error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// DatabaseError creates a database error
func DatabaseError(message string, err error) *AppError {
	return Wrap(err, ErrCodeDatabase, message, http.StatusInternalServerError)
}

// UnknownRuleType creates a configuration error for a rule type that has no
// registered evaluator. It fails only the affected rule for the cycle.
func UnknownRuleType(ruleType string) *AppError {
	return New(ErrCodeUnknownRule,
		fmt.Sprintf("no evaluator registered for rule type %q", ruleType),
		http.StatusBadRequest)
}

// ContextBuildError wraps an upstream data failure that aborts the current
// evaluation sweep
func ContextBuildError(err error) *AppError {
	return Wrap(err, ErrCodeContextBuild, "failed to build evaluation context", http.StatusServiceUnavailable)
}

// DeliveryError wraps a channel send failure recorded on the notification
func DeliveryError(channel string, err error) *AppError {
	return Wrap(err, ErrCodeDelivery,
		fmt.Sprintf("failed to deliver notification via %s", channel),
		http.StatusBadGateway)
}

// IsNotFound reports whether err is a not-found AppError
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

// IsStateConflict reports whether err is a state-conflict AppError
func IsStateConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeStateConflict
}
