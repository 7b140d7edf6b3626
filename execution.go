package bastion

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// ExecutionContext is the per-call record threaded through a pipeline. One is
// created for each top-level execution and dropped when it returns.
//
// A pessimistic timeout may leave an abandoned operation running on another
// goroutine while the caller continues, so every accessor is safe for
// concurrent use.
type ExecutionContext struct {
	ctx       context.Context //nolint:containedctx // cancellation signal of the owning call
	clock     Clock
	start     time.Time
	metadata  map[string]any
	policyKey atomic.Pointer[string]
	mu        sync.Mutex
	attempt   atomic.Int64
	abandoned atomic.Bool
}

type executionKey struct{}

// NewExecutionContext creates an execution record bound to ctx's
// cancellation. A nil clock selects [RealClock].
func NewExecutionContext(ctx context.Context, clock Clock) *ExecutionContext {
	if clock == nil {
		clock = RealClock{}
	}

	return &ExecutionContext{
		ctx:      ctx,
		clock:    clock,
		start:    clock.Now(),
		metadata: make(map[string]any),
	}
}

// ContextWithExecution returns a child of ctx carrying ec.
func ContextWithExecution(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, executionKey{}, ec)
}

// ExecutionFrom returns the execution record carried by ctx, or nil.
func ExecutionFrom(ctx context.Context) *ExecutionContext {
	ec, _ := ctx.Value(executionKey{}).(*ExecutionContext)
	return ec
}

// ensureExecution returns ctx and the execution record it carries, creating
// and attaching a fresh one when the policy is invoked directly.
func ensureExecution(ctx context.Context, clock Clock) (context.Context, *ExecutionContext) {
	if ec := ExecutionFrom(ctx); ec != nil {
		return ctx, ec
	}

	ec := NewExecutionContext(ctx, clock)

	return ContextWithExecution(ctx, ec), ec
}

// Attempt returns the 0-based attempt number set by the innermost active
// retry policy.
func (ec *ExecutionContext) Attempt() int { return int(ec.attempt.Load()) }

func (ec *ExecutionContext) setAttempt(n int) { ec.attempt.Store(int64(n)) }

// Start returns the time the execution began.
func (ec *ExecutionContext) Start() time.Time { return ec.start }

// Elapsed returns the time since the execution began.
func (ec *ExecutionContext) Elapsed() time.Duration { return ec.clock.Since(ec.start) }

// CancellationRequested reports whether the caller's context is done.
func (ec *ExecutionContext) CancellationRequested() bool { return ec.ctx.Err() != nil }

// Abandoned reports whether the most recently entered timeout walked away
// from the operation. Each timeout entry clears the flag, so a retry that
// succeeds after an earlier timed-out attempt reports false.
func (ec *ExecutionContext) Abandoned() bool { return ec.abandoned.Load() }

func (ec *ExecutionContext) abandon() { ec.abandoned.Store(true) }

func (ec *ExecutionContext) clearAbandoned() { ec.abandoned.Store(false) }

// PolicyKey returns the key of the policy that acted most recently.
func (ec *ExecutionContext) PolicyKey() string {
	if k := ec.policyKey.Load(); k != nil {
		return *k
	}

	return ""
}

func (ec *ExecutionContext) setPolicyKey(k string) { ec.policyKey.Store(&k) }

// Set stores a metadata value under key.
func (ec *ExecutionContext) Set(key string, value any) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	ec.metadata[key] = value
}

// Get returns the metadata value stored under key.
func (ec *ExecutionContext) Get(key string) (any, bool) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	v, ok := ec.metadata[key]

	return v, ok
}

// Keys returns the metadata keys in sorted order.
func (ec *ExecutionContext) Keys() []string {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	return slices.Sorted(maps.Keys(ec.metadata))
}
