package bastion

import (
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Error classification wrappers
// ---------------------------------------------------------------------------.

type (
	// ResilienceError identifies errors produced by the policy engine itself,
	// as opposed to errors from the wrapped operation.
	//nolint:iface // exported for use in tests and consumer error
	// classification.
	ResilienceError interface {
		error
		// IsResilience reports whether this error originates from the
		// policy engine.
		IsResilience() bool
	}

	// TimeoutError is the failure synthesized by a [TimeoutPolicy] when the
	// operation does not complete within its budget. It matches
	// [ErrTimeoutExceeded] through [errors.Is].
	TimeoutError struct {
		PolicyKey string
		Timeout   time.Duration
	}

	// transientError marks a wrapped error as transient (retriable).
	transientError struct {
		err error
	}

	// permanentError marks a wrapped error as permanent (non-retriable).
	permanentError struct {
		err error
	}

	// resilienceError is the concrete type backing all sentinel errors.
	resilienceError string
)

// Sentinel resilience errors.
var (
	// ErrInvalidConfiguration is returned by policy constructors when a
	// parameter is out of range. It is never produced during execution.
	ErrInvalidConfiguration error = resilienceError("invalid configuration")
	// ErrTimeoutExceeded is matched by every [TimeoutError].
	ErrTimeoutExceeded error = resilienceError("timeout exceeded")
	// ErrCancelled is returned when the caller's context preempts a delay or
	// a timeout wait.
	ErrCancelled error = resilienceError("cancelled")
)

func (e *transientError) Error() string { return "transient: " + e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func (e *permanentError) Error() string { return "permanent: " + e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func (e resilienceError) Error() string { return string(e) }

// IsResilience reports whether the error is a resilience infrastructure error.
func (resilienceError) IsResilience() bool { return true }

// Error implements error.
func (e *TimeoutError) Error() string {
	if e.PolicyKey == "" {
		return fmt.Sprintf("timeout exceeded after %s", e.Timeout)
	}

	return fmt.Sprintf("%s: timeout exceeded after %s", e.PolicyKey, e.Timeout)
}

// Unwrap returns [ErrTimeoutExceeded].
func (*TimeoutError) Unwrap() error { return ErrTimeoutExceeded }

// IsResilience reports true.
func (*TimeoutError) IsResilience() bool { return true }

// invalidConfig wraps ErrInvalidConfiguration with the offending parameter.
func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// cancelled wraps ErrCancelled together with the context's cause.
func cancelled(cause error) error {
	if cause == nil {
		return ErrCancelled
	}

	return fmt.Errorf("%w: %w", ErrCancelled, cause)
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
	// Explicitly permanent errors are not transient.
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
