package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a service failure for callers. The HTTP layer maps
// kinds to status codes; KindInternal additionally carries its cause for
// logging but only ever surfaces a generic message.
type ErrorKind string

const (
	// KindInvalidOperation is caller-level misuse, e.g. a same-account transfer.
	KindInvalidOperation ErrorKind = "invalid_operation"
	// KindNotFound means a referenced entity is absent or not owned by the caller.
	KindNotFound ErrorKind = "not_found"
	// KindInsufficientFunds means a debit would drive a source balance negative.
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	// KindInternal covers store faults and anything else unexpected.
	KindInternal ErrorKind = "internal"
)

// Error is a typed service failure.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// InvalidOperationf builds an InvalidOperation error.
func InvalidOperationf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidOperation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a NotFound error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// InsufficientFundsf builds an InsufficientFunds error.
func InsufficientFundsf(format string, args ...any) *Error {
	return &Error{Kind: KindInsufficientFunds, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected error. The original cause is retained for
// logging; the message shown to users stays generic.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", cause: cause}
}

// KindOf returns the kind of err, or KindInternal when err carries no kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError returns err as a typed *Error, wrapping it as internal when needed.
// Services use this at their boundary so store-level faults never escape raw.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
