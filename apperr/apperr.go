// Package apperr implements the error taxonomy from spec.md §7:
// Transient, RateLimited, AuthExpired, NotFound, Conflict, Fatal, Safety.
// Providers and the rest of the engine wrap failures in these kinds so
// the HTTP boundary can dispatch on them uniformly. Nothing in this
// module retries a failed operation automatically.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one taxonomy member from spec.md §7.
type Kind string

const (
	Transient   Kind = "transient"
	RateLimited Kind = "rate_limited"
	AuthExpired Kind = "auth_expired"
	NotFound    Kind = "not_found"
	Conflict    Kind = "conflict"
	Fatal       Kind = "fatal"
	Safety      Kind = "safety"
)

// Retryable reports whether operations of this kind are idempotent
// under retry, per spec.md §4.1 ("Every operation is idempotent under
// retry of the documented error kinds").
func (k Kind) Retryable() bool {
	return k == Transient || k == RateLimited
}

// Error wraps an underlying error with a taxonomy Kind and an optional
// retry-after hint (used by RateLimited errors carrying a server hint).
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter float64 // seconds; zero means the backend gave no hint
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// RateLimitedWithHint builds a RateLimited error carrying the backend's
// own retry-after hint in RetryAfter. No code in this module reads the
// hint or retries on it.
func RateLimitedWithHint(message string, cause error, retryAfterSeconds float64) *Error {
	return &Error{Kind: RateLimited, Message: message, Err: cause, RetryAfter: retryAfterSeconds}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; otherwise returns Fatal, since an un-taxonomized error must
// halt rather than be silently retried.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Fatal
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
