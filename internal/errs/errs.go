// Package errs implements the error taxonomy used across the session: every
// request handler returns a plain error, classified into one of a small set
// of kinds so the dispatch loop can decide what to log and what to put in
// the DAP response message.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why a request failed.
type Kind int

const (
	// Internal marks an adapter bug: an invariant violation or a missing
	// feature. Always logged.
	Internal Kind = iota
	// UserError marks an operation that failed because of inferior state;
	// the engine's own message is surfaced to the front-end.
	UserError
	// PreconditionNotInitialized marks an operation that requires a
	// debugger/target/process that hasn't been created yet.
	PreconditionNotInitialized
	// Protocol marks malformed request arguments.
	Protocol
)

func (k Kind) String() string {
	switch k {
	case Internal:
		return "internal"
	case UserError:
		return "user"
	case PreconditionNotInitialized:
		return "precondition"
	case Protocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }
func (e *Error) Unwrap() error { return e.err }

// New builds a classified error from a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, err: errors.New(msg)}
}

// Newf builds a classified error from a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, err: errors.New(fmt.Sprintf(format, args...))}
}

// Wrap attaches a Kind to an existing error, adding context.
func Wrap(kind Kind, err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, err: errors.Wrap(err, msg)}
}

// Internalf builds an Internal error.
func Internalf(format string, args ...any) *Error { return Newf(Internal, format, args...) }

// UserErrorf builds a UserError, typically wrapping the engine's own message.
func UserErrorf(format string, args ...any) *Error { return Newf(UserError, format, args...) }

// Preconditionf builds a PreconditionNotInitialized error.
func Preconditionf(format string, args ...any) *Error {
	return Newf(PreconditionNotInitialized, format, args...)
}

// Protocolf builds a Protocol error for malformed request arguments.
func Protocolf(format string, args ...any) *Error { return Newf(Protocol, format, args...) }

// KindOf returns the Kind of err, defaulting to Internal for unclassified
// errors (anything that didn't originate in this package is an adapter bug
// by definition: every other failure path should have classified it).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message extracts the user-facing message for a DAP Response.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
