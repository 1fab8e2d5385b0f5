package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeUnauthenticated ErrorType = "unauthenticated"
	ErrorTypeForbidden       ErrorType = "forbidden"
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeInternal        ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on type, and on message when the target carries one
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && (t.Message == "" || t.Message == e.Message)
}

// WithDetail returns a copy of the error carrying an extra detail
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Type: e.Type, Message: e.Message, Err: e.Err, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

var (
	// Authentication
	ErrMissingAuthHeader = NewDomainError(ErrorTypeUnauthenticated, "Authorization header missing or invalid", nil)
	ErrTokenMissing      = NewDomainError(ErrorTypeUnauthenticated, "Token missing", nil)
	ErrTokenExpired      = NewDomainError(ErrorTypeUnauthenticated, "Token expired", nil)
	ErrTokenRevoked      = NewDomainError(ErrorTypeUnauthenticated, "Token revoked", nil)
	ErrInvalidToken      = NewDomainError(ErrorTypeUnauthenticated, "Invalid token", nil)
	ErrNotAuthenticated  = NewDomainError(ErrorTypeUnauthenticated, "User not authenticated", nil)

	// Authorization
	ErrInsufficientPermissions = NewDomainError(ErrorTypeForbidden, "Insufficient permissions", nil)
	ErrRoleNotFound            = NewDomainError(ErrorTypeForbidden, "User role not found", nil)

	// Validation
	ErrMissingClaimsFields = NewDomainError(ErrorTypeValidation, "Missing required fields: uid and claims", nil)
	ErrUserIDRequired      = NewDomainError(ErrorTypeValidation, "User ID is required", nil)
	ErrUnknownRole         = NewDomainError(ErrorTypeValidation, "Unknown role in claims", nil)
	ErrInvalidBody         = NewDomainError(ErrorTypeValidation, "Invalid request body", nil)

	// Not found
	ErrUserNotFound = NewDomainError(ErrorTypeNotFound, "User not found", nil)

	// Internal
	ErrInternal = NewDomainError(ErrorTypeInternal, "Internal Server Error", nil)
)

func hasType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// IsUnauthenticatedError checks if an error is an authentication error
func IsUnauthenticatedError(err error) bool { return hasType(err, ErrorTypeUnauthenticated) }

// IsForbiddenError checks if an error is an authorization error
func IsForbiddenError(err error) bool { return hasType(err, ErrorTypeForbidden) }

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool { return hasType(err, ErrorTypeValidation) }

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool { return hasType(err, ErrorTypeNotFound) }

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorMessage returns the client-facing message of a domain error
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError attaches a cause to a copy of a sentinel domain error
func WrapError(sentinel *DomainError, err error) error {
	return &DomainError{Type: sentinel.Type, Message: sentinel.Message, Err: err, Details: sentinel.Details}
}

// WrapInternal wraps an unexpected failure as an internal error
func WrapInternal(err error) error {
	return WrapError(ErrInternal, err)
}
