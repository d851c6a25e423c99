package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeInvalidPayload        ErrorCode = "INVALID_PAYLOAD"
	ErrCodeCredentialUnavailable ErrorCode = "CREDENTIAL_UNAVAILABLE"
	ErrCodeUpstream              ErrorCode = "UPSTREAM_FAILURE"
)

// Error represents a domain-level error. Stage is set for pipeline failures.
type Error struct {
	Code    ErrorCode
	Stage   State
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Stage != "" {
		msg = fmt.Sprintf("%s (stage %s)", e.Message, e.Stage)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// StageError marks err as an upstream failure raised while the pipeline was in stage.
func StageError(stage State, message string, err error) *Error {
	return &Error{
		Code:    ErrCodeUpstream,
		Stage:   stage,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrEmptyDelivery         = NewError(ErrCodeInvalidPayload, "webhook delivery contains no events")
	ErrMissingProductID      = NewError(ErrCodeInvalidPayload, "event objectId is missing")
	ErrMissingPropertyValue  = NewError(ErrCodeInvalidPayload, "event propertyValue is missing")
	ErrCredentialUnavailable = NewError(ErrCodeCredentialUnavailable, "secret payload holds no token")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// FailedStage reports the pipeline stage attached to err, if any.
func FailedStage(err error) State {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Stage
	}
	return ""
}
