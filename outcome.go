package bastion

import "context"

type (
	// Operation is the unit of work executed through a [Policy]. The context
	// carries the caller's cancellation signal and the current
	// [ExecutionContext] (see [ExecutionFrom]).
	Operation[T any] func(ctx context.Context) (T, error)

	// Outcome is the result of one invocation: either a value or a failure.
	// Outcomes are values; policies replace them, never mutate them.
	Outcome[T any] struct {
		Value T
		Err   error
	}
)

// Success returns a successful outcome carrying v.
func Success[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Failure returns a failed outcome carrying err and the zero value of T.
func Failure[T any](err error) Outcome[T] {
	return Outcome[T]{Err: err}
}

// Failed reports whether the outcome carries an error.
func (o Outcome[T]) Failed() bool { return o.Err != nil }

// Unpack returns the outcome as a (value, error) pair.
//
//nolint:ireturn // generic type parameter T, not an interface
func (o Outcome[T]) Unpack() (T, error) { return o.Value, o.Err }

// invoke runs op and captures its result as an Outcome.
func invoke[T any](ctx context.Context, op Operation[T]) Outcome[T] {
	v, err := op(ctx)
	return Outcome[T]{Value: v, Err: err}
}
