// Package bastion provides composable resilience policies for Go.
//
// A [Policy] is one rule: [RetryPolicy] re-invokes an operation on a delay
// schedule, [TimeoutPolicy] bounds its duration and [FallbackPolicy]
// substitutes a recovered outcome. [Wrap] composes policies into a
// [Pipeline], outermost first, executed as a single unit. Each policy decides
// what to react to through a [FaultPredicate], which can match errors,
// result values, or both.
//
//	retry, _ := bastion.NewRetry(3,
//		bastion.Exponential(100*time.Millisecond),
//		bastion.HandleError[string]())
//	timeout, _ := bastion.NewTimeout[string](time.Second)
//	fallback, _ := bastion.NewFallback(
//		bastion.HandleErrorIs[string](bastion.ErrTimeoutExceeded),
//		bastion.FallbackValue("try again later"))
//
//	p, _ := bastion.Wrap[string](fallback, retry, timeout)
//	v, err := p.Do(ctx, fetch)
//
// Policies and pipelines are immutable and safe for concurrent use. Per-call
// state lives in an [ExecutionContext] reachable from the operation's context
// through [ExecutionFrom].
package bastion
