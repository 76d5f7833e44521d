// Package errors provides the standardized error taxonomy for appointment
// event processing and notification dispatch.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeMalformedEvent    ErrorCode = "MALFORMED_EVENT"
	ErrCodeUnsupportedAction ErrorCode = "UNSUPPORTED_ACTION"

	ErrCodeAppointmentNotFound     ErrorCode = "APPOINTMENT_NOT_FOUND"
	ErrCodeAppointmentTypeNotFound ErrorCode = "APPOINTMENT_TYPE_NOT_FOUND"
	ErrCodeCalendarNotFound        ErrorCode = "CALENDAR_NOT_FOUND"
	ErrCodeCalendarMisconfigured   ErrorCode = "CALENDAR_MISCONFIGURED"
	ErrCodeProjectTaskNotFound     ErrorCode = "PROJECT_TASK_NOT_FOUND"

	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeUnknownProperty  ErrorCode = "UNKNOWN_PROPERTY"

	ErrCodeStoreConflict      ErrorCode = "STORE_CONFLICT"
	ErrCodeStoreFailed        ErrorCode = "STORE_FAILED"
	ErrCodeSourceCallFailed   ErrorCode = "SOURCE_CALL_FAILED"
	ErrCodeDirectoryFailed    ErrorCode = "DIRECTORY_CALL_FAILED"
	ErrCodeEmailSendFailed    ErrorCode = "EMAIL_SEND_FAILED"
	ErrCodeTeamNotifyFailed   ErrorCode = "TEAM_NOTIFY_FAILED"
	ErrCodeRequestInvalidBody ErrorCode = "REQUEST_INVALID_BODY"
)

// ErrAlreadyExists is the sentinel returned by conditional puts against an
// existing key. Callers detect double-booking with errors.Is.
var ErrAlreadyExists = errors.New("item already exists")

// ErrItemNotFound is the sentinel returned by store reads for a missing key.
var ErrItemNotFound = errors.New("item not found")

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// CodeOf extracts the ErrorCode from err, or "" if err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsNotFound reports whether err carries one of the does-not-exist codes.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case ErrCodeAppointmentNotFound, ErrCodeAppointmentTypeNotFound,
		ErrCodeCalendarNotFound, ErrCodeProjectTaskNotFound:
		return true
	}
	return false
}

// NewMalformedEventError creates a non-retryable parse error. The event will
// never parse, so retrying has no value.
func NewMalformedEventError(payload string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedEvent,
		Message:   "event payload does not match the expected grammar",
		Details:   fmt.Sprintf("payload: %s", payload),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnsupportedActionError creates a non-retryable action error.
func NewUnsupportedActionError(action string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnsupportedAction,
		Message:   "event action is not supported",
		Details:   fmt.Sprintf("action: %s", action),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a typed does-not-exist error carrying the missing key.
func NewNotFoundError(code ErrorCode, resource, key string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   fmt.Sprintf("%s does not exist", resource),
		Details:   fmt.Sprintf("key: %s", key),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCalendarMisconfiguredError flags a calendar item missing a required field.
func NewCalendarMisconfiguredError(calendarID, field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCalendarMisconfigured,
		Message:   "calendar item is missing a required field",
		Details:   fmt.Sprintf("calendarId: %s, field: %s", calendarID, field),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable template lookup error
// carrying the full lookup path.
func NewTemplateNotFoundError(path string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "no template defined for lookup path",
		Details:   fmt.Sprintf("path: %s", path),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownPropertyError flags a template requesting a property the resolver
// does not know. This is a programming-contract violation, not a runtime error.
func NewUnknownPropertyError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownProperty,
		Message:   "custom property name not known to the resolver",
		Details:   fmt.Sprintf("property: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreConflictError wraps a conditional-write rejection.
func NewStoreConflictError(table, key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreConflict,
		Message:   "conditional write rejected, item already exists",
		Details:   fmt.Sprintf("table: %s, key: %s", table, key),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     ErrAlreadyExists,
	}
}

// NewStoreFailedError wraps a store I/O failure.
func NewStoreFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreFailed,
		Message:   "store operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewSourceCallFailedError wraps a scheduling-source API failure.
func NewSourceCallFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSourceCallFailed,
		Message:   "scheduling source call failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDirectoryFailedError wraps a directory API failure.
func NewDirectoryFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDirectoryFailed,
		Message:   "directory call failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewEmailSendFailedError wraps a transactional email dispatch failure.
func NewEmailSendFailedError(recipient string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailSendFailed,
		Message:   "email dispatch failed",
		Details:   fmt.Sprintf("recipient: %s, error: %s", recipient, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewTeamNotifyFailedError wraps an internal-team email failure.
func NewTeamNotifyFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTeamNotifyFailed,
		Message:   "internal-team notification failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidBodyError flags a request body that failed schema validation.
func NewInvalidBodyError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestInvalidBody,
		Message:   "request body failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
