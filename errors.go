package c8r

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Error classification wrappers
// ---------------------------------------------------------------------------

type (
	// CombinatorError identifies errors produced by the combinators
	// themselves, as opposed to errors from the wrapped function.
	//nolint:iface // exported for consumer error classification.
	CombinatorError interface {
		error
		// IsCombinator reports whether this error originates from a
		// combinator.
		IsCombinator() bool
	}

	// transientError marks a wrapped error as transient (retriable).
	transientError struct {
		err error
	}

	// permanentError marks a wrapped error as permanent (non-retriable).
	permanentError struct {
		err error
	}

	// combinatorError is the concrete type backing all sentinel errors.
	combinatorError string
)

// Sentinel combinator errors.
var (
	// ErrInvalidConfiguration is returned by constructors when a parameter is
	// out of range. It is always wrapped with the offending detail.
	ErrInvalidConfiguration error = combinatorError("invalid configuration")
	// ErrTimeout is returned when an operation exceeds its deadline.
	ErrTimeout error = combinatorError("timeout")
	// ErrRetriesExhausted wraps the last failure once all attempts are used.
	ErrRetriesExhausted error = combinatorError("retries exhausted")
	// ErrRateLimited is returned when the token bucket denies admission.
	ErrRateLimited error = combinatorError("rate limited")
	// ErrCircuitOpen is returned when the circuit breaker is in the open state.
	ErrCircuitOpen error = combinatorError("circuit breaker is open")
)

func (e *transientError) Error() string { return "transient: " + e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func (e *permanentError) Error() string { return "permanent: " + e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func (e combinatorError) Error() string { return string(e) }

// IsCombinator reports whether the error is a combinator error.
func (combinatorError) IsCombinator() bool { return true }

// invalidf wraps [ErrInvalidConfiguration] with a formatted detail.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfiguration}, args...)...)
}

// Transient wraps err to mark it as a transient (retriable) error.
// Returns nil if err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}

	return &transientError{err: err}
}

// Permanent wraps err to mark it as a permanent (non-retriable) error.
// Returns nil if err is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// IsTransient reports whether err is transient. Unclassified (unwrapped)
// errors are treated as transient. Returns false for nil.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pe *permanentError

	return !errors.As(err, &pe)
}

// IsPermanent reports whether err was explicitly marked as permanent.
// Returns false for nil and for unclassified errors.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var pe *permanentError

	return errors.As(err, &pe)
}
