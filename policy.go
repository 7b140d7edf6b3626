package bastion

import (
	"context"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Policy[T] — the unit of composition
// ---------------------------------------------------------------------------

// Policy is one resilience rule (or a composition of rules). Policies are
// immutable once built and safe for concurrent use; all per-call state lives
// in the [ExecutionContext].
type Policy[T any] interface {
	// Key identifies the policy in hooks and in ExecutionContext.PolicyKey.
	Key() string
	// Execute runs op under the policy and returns the resulting outcome.
	Execute(ctx context.Context, op Operation[T]) Outcome[T]
}

// Per-policy hooks. They receive the typed outcome, unlike [Hooks].
type (
	// RetryHook runs before each retry sleep. attempt is 1-based.
	RetryHook[T any] func(ec *ExecutionContext, o Outcome[T], attempt int, delay time.Duration)
	// TimeoutHook runs when a timeout abandons the operation.
	TimeoutHook func(ec *ExecutionContext, timeout time.Duration)
	// FallbackHook runs with the handled outcome before it is replaced.
	FallbackHook[T any] func(ec *ExecutionContext, o Outcome[T])
)

// ---------------------------------------------------------------------------
// Option descriptors — returned as any, interpreted by each constructor
// ---------------------------------------------------------------------------

// Pattern: Functional Options — generic hooks and common settings share one
// variadic parameter, so options are passed as any and type-switched.

type optionKind int

const (
	kindCommon optionKind = iota
	kindRetry
	kindTimeout
	kindFallback
)

type option interface{ kind() optionKind }

type (
	keyOption             string
	clockOption           struct{ clock Clock }
	hooksOption           struct{ hooks Hooks }
	timeoutStrategyOption TimeoutStrategy
	timeoutHookOption     struct{ fn TimeoutHook }
)

type retryHookOption[T any] struct{ fn RetryHook[T] }

type fallbackHookOption[T any] struct{ fn FallbackHook[T] }

func (keyOption) kind() optionKind             { return kindCommon }
func (clockOption) kind() optionKind           { return kindCommon }
func (hooksOption) kind() optionKind           { return kindCommon }
func (timeoutStrategyOption) kind() optionKind { return kindTimeout }
func (timeoutHookOption) kind() optionKind     { return kindTimeout }
func (retryHookOption[T]) kind() optionKind    { return kindRetry }
func (fallbackHookOption[T]) kind() optionKind { return kindFallback }

// WithKey names the policy. The key appears in hook events and in
// ExecutionContext.PolicyKey.
func WithKey(key string) any { return keyOption(key) }

// WithClock sets the clock used for retry delays and elapsed-time reporting.
func WithClock(c Clock) any { return clockOption{clock: c} }

// WithHooks attaches lifecycle hooks. Repeated WithHooks options accumulate.
func WithHooks(h Hooks) any { return hooksOption{hooks: h} }

// OnRetry sets the retry policy's typed hook.
func OnRetry[T any](fn RetryHook[T]) any { return retryHookOption[T]{fn: fn} }

// OnTimeout sets the timeout policy's hook.
func OnTimeout(fn TimeoutHook) any { return timeoutHookOption{fn: fn} }

// OnFallback sets the fallback policy's typed hook.
func OnFallback[T any](fn FallbackHook[T]) any { return fallbackHookOption[T]{fn: fn} }

// WithTimeoutStrategy selects how a timeout policy abandons the operation.
func WithTimeoutStrategy(s TimeoutStrategy) any { return timeoutStrategyOption(s) }

// policyBase holds the settings shared by every policy kind.
type policyBase struct {
	clock Clock
	key   string
	hooks Hooks
}

// Key returns the policy key.
func (b *policyBase) Key() string { return b.key }

// applyOptions resolves common options into b and passes options of kind k
// to specific. Options meant for other policy kinds are ignored so that one
// option list can configure a whole pipeline.
func (b *policyBase) applyOptions(
	k optionKind,
	defaultKey string,
	opts []any,
	specific func(option) error,
) error {
	for i, raw := range opts {
		opt, ok := raw.(option)
		if !ok {
			return invalidConfig("option %d: unsupported type %T", i, raw)
		}

		switch o := opt.(type) {
		case keyOption:
			b.key = string(o)
		case clockOption:
			if o.clock == nil {
				return invalidConfig("option %d: nil clock", i)
			}

			b.clock = o.clock
		case hooksOption:
			b.hooks = JoinHooks(b.hooks, o.hooks)
		default:
			if opt.kind() != k {
				continue
			}

			if err := specific(opt); err != nil {
				return fmt.Errorf("option %d: %w", i, err)
			}
		}
	}

	if b.key == "" {
		b.key = defaultKey
	}

	if b.clock == nil {
		b.clock = RealClock{}
	}

	return nil
}

// keyed returns a copy of opts with WithKey(key) appended.
func keyed(opts []any, key string) []any {
	out := make([]any, 0, len(opts)+1)
	out = append(out, opts...)

	return append(out, WithKey(key))
}

// mismatch reports a typed option built for another result type.
func mismatch[T any](opt option) error {
	var zero T
	return invalidConfig("%T does not apply to result type %T", opt, zero)
}
