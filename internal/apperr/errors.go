// Package apperr defines the error taxonomy shared by the approval workflow
// services. Every error returned to a caller carries a Kind and a
// human-readable reason; transports decide how to render each kind.
package apperr

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation    Kind = "validation_error"    // malformed workflow/stage or missing required fields
	KindNotFound      Kind = "not_found"           // no content, no request, no applicable workflow
	KindAuthorization Kind = "authorization_error" // acting principal not permitted
	KindConflict      Kind = "conflict"            // duplicate active request, repeated approver action
	KindState         Kind = "state_error"         // operation against a terminal request
	KindInternal      Kind = "internal_error"      // anything not classified above
)

// Error is an application error with a kind and a reason.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Reason + ": " + e.cause.Error()
	}
	return e.Reason
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Cause implements the pkg/errors causer interface.
func (e *Error) Cause() error { return e.cause }

// Is matches any *Error of the same kind so callers can write
// errors.Is(err, apperr.ErrConflict).
func (e *Error) Is(target error) bool {
	var t *Error
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Reason == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrAuthorization = &Error{Kind: KindAuthorization}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrState         = &Error{Kind: KindState}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error    { return newf(KindValidation, format, args...) }
func NotFound(format string, args ...any) error      { return newf(KindNotFound, format, args...) }
func Authorization(format string, args ...any) error { return newf(KindAuthorization, format, args...) }
func Conflict(format string, args ...any) error      { return newf(KindConflict, format, args...) }
func State(format string, args ...any) error         { return newf(KindState, format, args...) }

// Wrap attaches a kind and reason to an underlying error. The cause keeps its
// stack trace via pkg/errors.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), cause: errors.WithStack(err)}
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// ReasonOf returns the reason of the first *Error in the chain, or the error
// text for unclassified errors.
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Reason
	}
	return err.Error()
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
