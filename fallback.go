package bastion

import "context"

// Pattern: Fallback — replaces a handled fault with a substitute outcome,
// providing a last line of defence.

// FallbackProducer computes the substitute for a handled outcome. A failing
// substitute propagates as the execution's result.
type FallbackProducer[T any] func(ctx context.Context, handled Outcome[T]) Outcome[T]

// FallbackPolicy substitutes the outcome of handled faults.
type FallbackPolicy[T any] struct {
	policyBase

	handle     FaultPredicate[T]
	produce    FallbackProducer[T]
	onFallback FallbackHook[T]
}

// NewFallback builds a fallback policy. Accepted options: [WithKey],
// [WithClock], [WithHooks], [OnFallback].
func NewFallback[T any](
	handle FaultPredicate[T],
	producer FallbackProducer[T],
	opts ...any,
) (*FallbackPolicy[T], error) {
	if handle == nil {
		return nil, invalidConfig("fallback fault predicate is nil")
	}

	if producer == nil {
		return nil, invalidConfig("fallback producer is nil")
	}

	p := &FallbackPolicy[T]{handle: handle, produce: producer}

	err := p.applyOptions(kindFallback, "fallback", opts, func(opt option) error {
		o, ok := opt.(fallbackHookOption[T])
		if !ok {
			return mismatch[T](opt)
		}

		p.onFallback = o.fn

		return nil
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Execute runs op and replaces a handled outcome with the fallback.
func (p *FallbackPolicy[T]) Execute(ctx context.Context, op Operation[T]) Outcome[T] {
	ctx, ec := ensureExecution(ctx, p.clock)

	outcome := invoke(ctx, op)
	if !p.handle(outcome) {
		return outcome
	}

	ec.setPolicyKey(p.key)

	if p.onFallback != nil {
		p.onFallback(ec, outcome)
	}

	p.hooks.emitFallback(ctx, FallbackEvent{
		PolicyKey: p.key,
		Err:       outcome.Err,
		Elapsed:   ec.Elapsed(),
	})

	return p.produce(ctx, outcome)
}

// FallbackValue substitutes the constant v.
func FallbackValue[T any](v T) FallbackProducer[T] {
	return func(context.Context, Outcome[T]) Outcome[T] {
		return Success(v)
	}
}

// FallbackFunc substitutes the result of calling fn.
func FallbackFunc[T any](fn Operation[T]) FallbackProducer[T] {
	return func(ctx context.Context, _ Outcome[T]) Outcome[T] {
		return invoke(ctx, fn)
	}
}

// FallbackError replaces the handled outcome with a failure computed from it,
// typically to translate an engine error into a domain error.
func FallbackError[T any](fn func(handled Outcome[T]) error) FallbackProducer[T] {
	return func(_ context.Context, handled Outcome[T]) Outcome[T] {
		return Failure[T](fn(handled))
	}
}
