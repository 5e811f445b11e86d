package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error so the gateway can map it to a
// structured error event without inspecting messages.
type Kind string

const (
	KindValidation     Kind = "VALIDATION_ERROR"
	KindNotFound       Kind = "NOT_FOUND"
	KindForbidden      Kind = "FORBIDDEN"
	KindConflict       Kind = "CONFLICT"
	KindInfrastructure Kind = "INFRASTRUCTURE"
	KindInternal       Kind = "INTERNAL"
)

// FieldError describes a single invalid field in an inbound payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the application error type shared by all coordinators.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Validation builds a validation error with per-field details.
func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// NotFound reports an absent room, game or participant.
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// Forbidden reports a capability or turn-ownership violation.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Conflict reports a duplicate claim on an exclusive resource.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Infra wraps a transient failure from an auxiliary collaborator.
func Infra(message string, cause error) *Error {
	return &Error{Kind: KindInfrastructure, Message: message, cause: cause}
}

// KindOf extracts the kind of err, defaulting to KindInternal for
// unexpected errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// As is a convenience wrapper around errors.As for *Error.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}
