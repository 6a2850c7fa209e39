package domain

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures surfaced to the user.
type ErrorType string

const (
	ErrorTypeSizeLimit         ErrorType = "size_limit_exceeded"
	ErrorTypeUnsupported       ErrorType = "unsupported_file_type"
	ErrorTypeRemoteCall        ErrorType = "remote_call_failure"
	ErrorTypeMalformedResponse ErrorType = "malformed_response"
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeBusy              ErrorType = "session_busy"
	ErrorTypeConfig            ErrorType = "config"
	ErrorTypeIO                ErrorType = "io"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports a match on error type, so any size-limit failure matches ErrSizeLimitExceeded.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Type == e.Type
}

var (
	ErrSizeLimitExceeded = &DomainError{Type: ErrorTypeSizeLimit, Message: "upload exceeds size limit"}
	ErrUnsupportedFile   = &DomainError{Type: ErrorTypeUnsupported, Message: "unsupported file type"}
	ErrRemoteCall        = &DomainError{Type: ErrorTypeRemoteCall, Message: "remote call failed"}
	ErrMalformed         = &DomainError{Type: ErrorTypeMalformedResponse, Message: "malformed model response"}
	ErrValidation        = &DomainError{Type: ErrorTypeValidation, Message: "invalid input"}
	ErrSessionBusy       = &DomainError{Type: ErrorTypeBusy, Message: "a translation run is already in progress"}
	ErrConfig            = &DomainError{Type: ErrorTypeConfig, Message: "configuration error"}
)

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func SizeLimitError(message string) *DomainError {
	return NewError(ErrorTypeSizeLimit, message, nil)
}

func UnsupportedError(message string) *DomainError {
	return NewError(ErrorTypeUnsupported, message, nil)
}

func RemoteCallError(message string, err error) *DomainError {
	return NewError(ErrorTypeRemoteCall, message, err)
}

func MalformedError(message string, err error) *DomainError {
	return NewError(ErrorTypeMalformedResponse, message, err)
}

func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// TypeOf returns the ErrorType of the first DomainError in err's chain, or "" if there is none.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}
