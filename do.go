package bastion

import "context"

// Do is a convenience function that runs op through policies, outermost
// first, without keeping the composed [Pipeline].
//
//nolint:ireturn // generic type parameter T, not an interface
func Do[T any](ctx context.Context, op Operation[T], policies ...Policy[T]) (T, error) {
	p, err := Wrap(policies...)
	if err != nil {
		var zero T
		return zero, err
	}

	return p.Do(ctx, op)
}
