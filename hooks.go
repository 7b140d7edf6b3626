package bastion

import (
	"context"
	"time"
)

type (
	// Hooks holds optional callbacks for policy lifecycle events. All fields
	// are nil by default; callers set only the hooks they care about. Once
	// handed to a policy, a Hooks value must not be mutated.
	//
	// Hooks are observability side effects: they cannot alter control flow.
	// A panicking hook aborts the execution and propagates to the caller.
	//
	// Pattern: Observer — decouples event emission from consumers (logging,
	// metrics, tracing) without policies knowing about them.
	Hooks struct {
		OnRetry     func(ctx context.Context, ev RetryEvent)
		OnTimeout   func(ctx context.Context, ev TimeoutEvent)
		OnFallback  func(ctx context.Context, ev FallbackEvent)
		OnCancelled func(ctx context.Context, ev CancelEvent)
	}

	// RetryEvent describes a retry about to be scheduled.
	RetryEvent struct {
		// Err is the failure that triggered the retry; nil when the fault
		// was classified from the result value.
		Err       error
		PolicyKey string
		// Attempt is the 1-based number of the retry about to happen.
		Attempt int
		Delay   time.Duration
		Elapsed time.Duration
	}

	// TimeoutEvent describes an operation abandoned by a timeout.
	TimeoutEvent struct {
		PolicyKey string
		Timeout   time.Duration
		Elapsed   time.Duration
	}

	// FallbackEvent describes a fault replaced by a fallback outcome.
	FallbackEvent struct {
		// Err is the handled failure; nil for result-classified faults.
		Err       error
		PolicyKey string
		Elapsed   time.Duration
	}

	// CancelEvent describes a delay or timeout wait preempted by the caller.
	CancelEvent struct {
		Cause     error
		PolicyKey string
		Elapsed   time.Duration
	}
)

// JoinHooks returns Hooks that invoke every non-nil callback of hs in order.
func JoinHooks(hs ...Hooks) Hooks {
	var joined Hooks

	for _, h := range hs {
		joined.OnRetry = chain(joined.OnRetry, h.OnRetry)
		joined.OnTimeout = chain(joined.OnTimeout, h.OnTimeout)
		joined.OnFallback = chain(joined.OnFallback, h.OnFallback)
		joined.OnCancelled = chain(joined.OnCancelled, h.OnCancelled)
	}

	return joined
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return func(ctx context.Context, ev E) {
			a(ctx, ev)
			b(ctx, ev)
		}
	}
}

func (h *Hooks) emitRetry(ctx context.Context, ev RetryEvent) {
	if h.OnRetry != nil {
		h.OnRetry(ctx, ev)
	}
}

func (h *Hooks) emitTimeout(ctx context.Context, ev TimeoutEvent) {
	if h.OnTimeout != nil {
		h.OnTimeout(ctx, ev)
	}
}

func (h *Hooks) emitFallback(ctx context.Context, ev FallbackEvent) {
	if h.OnFallback != nil {
		h.OnFallback(ctx, ev)
	}
}

func (h *Hooks) emitCancelled(ctx context.Context, ev CancelEvent) {
	if h.OnCancelled != nil {
		h.OnCancelled(ctx, ev)
	}
}
