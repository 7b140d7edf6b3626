package bastion

import "context"

// Pattern: Retry with Backoff — masks transient faults by re-invoking the
// operation on a delay schedule; the last outcome surfaces unchanged once
// attempts run out.

// RetryPolicy re-invokes an operation while its outcome is a handled fault,
// up to MaxAttempts retries.
type RetryPolicy[T any] struct {
	policyBase

	schedule    DelaySchedule
	handle      FaultPredicate[T]
	onRetry     RetryHook[T]
	maxAttempts int
}

// NewRetry builds a retry policy. maxAttempts counts retries, so the
// operation runs at most maxAttempts+1 times; zero runs it exactly once.
// A nil schedule retries immediately. Accepted options: [WithKey],
// [WithClock], [WithHooks], [OnRetry].
func NewRetry[T any](
	maxAttempts int,
	schedule DelaySchedule,
	handle FaultPredicate[T],
	opts ...any,
) (*RetryPolicy[T], error) {
	if maxAttempts < 0 {
		return nil, invalidConfig("retry max attempts %d is negative", maxAttempts)
	}

	if handle == nil {
		return nil, invalidConfig("retry fault predicate is nil")
	}

	p := &RetryPolicy[T]{
		schedule:    schedule,
		handle:      handle,
		maxAttempts: maxAttempts,
	}

	err := p.applyOptions(kindRetry, "retry", opts, func(opt option) error {
		o, ok := opt.(retryHookOption[T])
		if !ok {
			return mismatch[T](opt)
		}

		p.onRetry = o.fn

		return nil
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// MaxAttempts returns the configured number of retries.
func (p *RetryPolicy[T]) MaxAttempts() int { return p.maxAttempts }

// Execute runs op, retrying handled faults.
func (p *RetryPolicy[T]) Execute(ctx context.Context, op Operation[T]) Outcome[T] {
	ctx, ec := ensureExecution(ctx, p.clock)

	for attempt := 0; ; attempt++ {
		ec.setAttempt(attempt)

		outcome := invoke(ctx, op)
		if !p.handle(outcome) {
			return outcome
		}

		if attempt >= p.maxAttempts {
			return outcome
		}

		delay := p.schedule.delay(attempt)

		ec.setPolicyKey(p.key)

		if p.onRetry != nil {
			p.onRetry(ec, outcome, attempt+1, delay)
		}

		p.hooks.emitRetry(ctx, RetryEvent{
			PolicyKey: p.key,
			Attempt:   attempt + 1,
			Delay:     delay,
			Err:       outcome.Err,
			Elapsed:   ec.Elapsed(),
		})

		if err := sleep(ctx, p.clock, delay); err != nil {
			p.hooks.emitCancelled(ctx, CancelEvent{
				PolicyKey: p.key,
				Cause:     context.Cause(ctx),
				Elapsed:   ec.Elapsed(),
			})

			return Failure[T](err)
		}
	}
}
