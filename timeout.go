package bastion

import (
	"context"
	"errors"
	"time"
)

// Pattern: Timeout — races the operation against a deadline and walks away
// with a TimeoutError when the deadline wins. Distinguishes the policy's own
// deadline from cancellation of the parent context.

// TimeoutStrategy selects how a [TimeoutPolicy] enforces its budget.
type TimeoutStrategy int

const (
	// Pessimistic runs the operation on its own goroutine and returns as soon
	// as the budget expires, whether or not the operation honours its
	// context. An operation that ignores cancellation keeps running after it
	// has been abandoned.
	Pessimistic TimeoutStrategy = iota
	// Optimistic runs the operation inline with a deadline context and relies
	// on it to return once the context is done.
	Optimistic
)

// String returns the strategy name used in configuration files.
func (s TimeoutStrategy) String() string {
	if s == Optimistic {
		return "optimistic"
	}

	return "pessimistic"
}

// TimeoutPolicy bounds the duration of each execution of its operation.
type TimeoutPolicy[T any] struct {
	policyBase

	onTimeout TimeoutHook
	timeout   time.Duration
	strategy  TimeoutStrategy
}

// NewTimeout builds a timeout policy. Accepted options: [WithKey],
// [WithClock], [WithHooks], [OnTimeout], [WithTimeoutStrategy].
func NewTimeout[T any](timeout time.Duration, opts ...any) (*TimeoutPolicy[T], error) {
	if timeout <= 0 {
		return nil, invalidConfig("timeout %s is not positive", timeout)
	}

	p := &TimeoutPolicy[T]{timeout: timeout}

	err := p.applyOptions(kindTimeout, "timeout", opts, func(opt option) error {
		switch o := opt.(type) {
		case timeoutHookOption:
			p.onTimeout = o.fn
		case timeoutStrategyOption:
			if TimeoutStrategy(o) != Pessimistic && TimeoutStrategy(o) != Optimistic {
				return invalidConfig("unknown timeout strategy %d", int(o))
			}

			p.strategy = TimeoutStrategy(o)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Timeout returns the configured budget.
func (p *TimeoutPolicy[T]) Timeout() time.Duration { return p.timeout }

// Strategy returns the configured strategy.
func (p *TimeoutPolicy[T]) Strategy() TimeoutStrategy { return p.strategy }

// Execute runs op under the timeout.
func (p *TimeoutPolicy[T]) Execute(ctx context.Context, op Operation[T]) Outcome[T] {
	ctx, ec := ensureExecution(ctx, p.clock)
	ec.clearAbandoned()

	// If the parent context is already done, don't start the operation.
	if ctx.Err() != nil {
		return p.cancel(ctx, ec)
	}

	timeoutCtx, cancel := context.WithTimeoutCause(ctx, p.timeout, ErrTimeoutExceeded)
	defer cancel()

	if p.strategy == Optimistic {
		outcome := invoke(timeoutCtx, op)

		switch {
		case !outcome.Failed():
			return outcome
		case ctx.Err() != nil:
			return p.cancel(ctx, ec)
		case errors.Is(context.Cause(timeoutCtx), ErrTimeoutExceeded):
			return p.timedOut(ctx, ec)
		default:
			return outcome
		}
	}

	type result struct {
		panicked any
		outcome  Outcome[T]
		ok       bool
	}

	ch := make(chan result, 1)

	go func() {
		r := result{}
		defer func() {
			if !r.ok {
				r.panicked = recover()
			}
			ch <- r
		}()

		r.outcome = invoke(timeoutCtx, op)
		r.ok = true
	}()

	select {
	case r := <-ch:
		if !r.ok {
			panic(r.panicked)
		}

		return r.outcome
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return p.cancel(ctx, ec)
		}

		return p.timedOut(ctx, ec)
	}
}

func (p *TimeoutPolicy[T]) timedOut(ctx context.Context, ec *ExecutionContext) Outcome[T] {
	ec.abandon()
	ec.setPolicyKey(p.key)

	if p.onTimeout != nil {
		p.onTimeout(ec, p.timeout)
	}

	p.hooks.emitTimeout(ctx, TimeoutEvent{
		PolicyKey: p.key,
		Timeout:   p.timeout,
		Elapsed:   ec.Elapsed(),
	})

	return Failure[T](&TimeoutError{PolicyKey: p.key, Timeout: p.timeout})
}

func (p *TimeoutPolicy[T]) cancel(ctx context.Context, ec *ExecutionContext) Outcome[T] {
	cause := context.Cause(ctx)

	p.hooks.emitCancelled(ctx, CancelEvent{
		PolicyKey: p.key,
		Cause:     cause,
		Elapsed:   ec.Elapsed(),
	})

	return Failure[T](cancelled(cause))
}
