package bastion

import "time"

// Pattern: Factory Function — each preset produces a ready-made pipeline for
// a common use case, avoiding boilerplate configuration.

// JitteredRetry returns a retry policy performing 5 retries, waiting
// 2^(n+1) seconds plus a random [0, 100ms) offset before retry n (0-based).
// A nil jitter draws offsets from an unseeded generator.
func JitteredRetry[T any](handle FaultPredicate[T], jitter *Jitter, opts ...any) (*RetryPolicy[T], error) {
	if jitter == nil {
		j, err := NewJitter(JitterSettings{Max: 100 * time.Millisecond})
		if err != nil {
			return nil, err
		}

		jitter = j
	}

	schedule := DelaySchedule(func(attempt int) time.Duration {
		return Exponential(time.Second)(attempt + 1)
	}).WithJitter(jitter)

	return NewRetry(5, schedule, handle, opts...)
}

// TimeoutRetryFallback returns the pipeline
//
//	fallback(any error -> anyErrorValue)
//	  fallback(timeout -> timeoutValue)
//	    retry(any error, 3 immediate retries)
//	      timeout(perAttempt)
//
// Each attempt gets its own time budget; once retries are exhausted a timeout
// is answered with timeoutValue and any other failure with anyErrorValue.
// opts apply to every policy.
func TimeoutRetryFallback[T any](
	perAttempt time.Duration,
	timeoutValue, anyErrorValue T,
	opts ...any,
) (*Pipeline[T], error) {
	anyError, err := NewFallback(
		HandleError[T](), FallbackValue(anyErrorValue),
		keyed(opts, "fallback-any-error")...,
	)
	if err != nil {
		return nil, err
	}

	onTimeout, err := NewFallback(
		HandleErrorIs[T](ErrTimeoutExceeded), FallbackValue(timeoutValue),
		keyed(opts, "fallback-timeout")...,
	)
	if err != nil {
		return nil, err
	}

	retry, err := NewRetry(3, Immediate(), HandleError[T](), keyed(opts, "retry")...)
	if err != nil {
		return nil, err
	}

	timeout, err := NewTimeout[T](perAttempt, keyed(opts, "timeout")...)
	if err != nil {
		return nil, err
	}

	return Wrap[T](anyError, onTimeout, retry, timeout)
}
