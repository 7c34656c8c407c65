// Package fault defines the error taxonomy shared by every ledger service.
// The transport layer maps Kind to a status code; the services only ever
// reason about Kind.
package fault

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindUnprocessable Kind = "unprocessable_entity"
	KindInternal      Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets two faults match on Kind and Message so domain packages can export
// sentinel faults and callers can use errors.Is against them.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind && e.Message == other.Message
}

func Validation(msg string) *Error    { return &Error{Kind: KindValidation, Message: msg} }
func NotFound(msg string) *Error      { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error      { return &Error{Kind: KindConflict, Message: msg} }
func Unprocessable(msg string) *Error { return &Error{Kind: KindUnprocessable, Message: msg} }

// Internal wraps an unexpected failure. The message is safe to expose; the
// wrapped error is for logs only.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf classifies any error. Non-fault errors are internal.
func KindOf(err error) Kind {
	var f *Error
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindInternal
}
