package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a malformed filter or argument
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeTimeout indicates a request exceeded its deadline
	ErrorTypeTimeout ErrorType = "TIMEOUT"

	// ErrorTypeNetwork indicates a transport or HTTP failure
	ErrorTypeNetwork ErrorType = "NETWORK"

	// ErrorTypeApplication indicates the server replied with a logical failure
	ErrorTypeApplication ErrorType = "APPLICATION"

	// ErrorTypeAuthRequired indicates the action needs a signed-in user
	ErrorTypeAuthRequired ErrorType = "AUTH_REQUIRED"

	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// ErrSuperseded is returned to waiters of a fetch that lost authority to a newer one.
var ErrSuperseded = stderrors.New("request superseded by a newer request")

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error

	// Action is the human-readable description shown in a login prompt.
	// Only set for ErrorTypeAuthRequired.
	Action string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeTimeout,
		Message: message,
		Err:     err,
	}
}

// NewNetworkError creates a new transport error
func NewNetworkError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeNetwork,
		Message: message,
		Err:     err,
	}
}

// NewApplicationError creates an error for a server-reported logical failure
func NewApplicationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeApplication,
		Message: message,
	}
}

// NewAuthRequiredError creates an error asking the caller to sign in before action
func NewAuthRequiredError(action string) *AppError {
	return &AppError{
		Type:    ErrorTypeAuthRequired,
		Message: "login required to " + action,
		Action:  action,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool { return IsType(err, ErrorTypeTimeout) }

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool { return IsType(err, ErrorTypeNetwork) }

// IsApplication reports whether err is a server-reported failure.
func IsApplication(err error) bool { return IsType(err, ErrorTypeApplication) }

// IsAuthRequired reports whether err asks for a login.
func IsAuthRequired(err error) bool { return IsType(err, ErrorTypeAuthRequired) }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return IsType(err, ErrorTypeValidation) }
