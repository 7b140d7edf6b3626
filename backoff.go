package bastion

import (
	"math"
	"time"
)

// DelaySchedule returns the delay to wait before retrying. attempt is
// 0-indexed: attempt 0 is the delay before the first retry.
//
// Pattern: Strategy — swap delay algorithms (immediate, constant, linear,
// exponential, explicit list) without changing retry logic.
type DelaySchedule func(attempt int) time.Duration

// delay evaluates s, treating nil as immediate and clamping negatives.
func (s DelaySchedule) delay(attempt int) time.Duration {
	if s == nil {
		return 0
	}

	if d := s(attempt); d > 0 {
		return d
	}

	return 0
}

// Immediate retries without waiting.
func Immediate() DelaySchedule {
	return func(int) time.Duration { return 0 }
}

// Constant waits d before every retry.
func Constant(d time.Duration) DelaySchedule {
	return func(int) time.Duration { return d }
}

// Linear waits step * (attempt + 1). Results beyond the range of
// time.Duration saturate; a non-positive step never waits.
func Linear(step time.Duration) DelaySchedule {
	return func(attempt int) time.Duration {
		if step <= 0 {
			return 0
		}

		n := time.Duration(attempt + 1)
		if n > time.Duration(math.MaxInt64)/step {
			return time.Duration(math.MaxInt64)
		}

		return step * n
	}
}

// Exponential waits base * 2^attempt. Results beyond the range of
// time.Duration saturate.
func Exponential(base time.Duration) DelaySchedule {
	return func(attempt int) time.Duration {
		d := float64(base) * math.Pow(2, float64(attempt))
		if d >= math.MaxInt64 {
			return time.Duration(math.MaxInt64)
		}

		return time.Duration(d)
	}
}

// Durations waits ds[attempt]; attempts past the end reuse the last entry.
// An empty list never waits. The list does not bound the number of retries:
// that stays with the retry policy's maxAttempts, so pass len(ds) there to
// retry exactly once per listed delay.
func Durations(ds ...time.Duration) DelaySchedule {
	list := append([]time.Duration(nil), ds...)

	return func(attempt int) time.Duration {
		if len(list) == 0 {
			return 0
		}

		return list[min(attempt, len(list)-1)]
	}
}

// Capped limits every delay of s to at most maxDelay.
func (s DelaySchedule) Capped(maxDelay time.Duration) DelaySchedule {
	return func(attempt int) time.Duration {
		return min(s.delay(attempt), maxDelay)
	}
}

// WithJitter adds j's random offset to every delay of s.
func (s DelaySchedule) WithJitter(j *Jitter) DelaySchedule {
	return func(attempt int) time.Duration {
		return j.Apply(s.delay(attempt))
	}
}
