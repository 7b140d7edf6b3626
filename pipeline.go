package bastion

import (
	"context"
	"strings"
)

// Pattern: Decorator — each policy wraps the next, forming a chain where the
// declared order determines execution semantics.

// Pipeline composes policies into one executable unit. The first policy is
// outermost: it runs first and observes the final outcome after every inner
// policy has acted. A Pipeline is itself a [Policy], so pipelines nest.
type Pipeline[T any] struct {
	key      string
	policies []Policy[T]
}

// clocked is implemented by every built-in policy.
type clocked interface{ policyClock() Clock }

func (b *policyBase) policyClock() Clock { return b.clock }

// Wrap composes policies, outermost first.
//
// Wrap(a, b, c) executes as a(b(c(op))). A single policy behaves exactly as
// if it were executed directly.
func Wrap[T any](policies ...Policy[T]) (*Pipeline[T], error) {
	if len(policies) == 0 {
		return nil, invalidConfig("pipeline has no policies")
	}

	keys := make([]string, 0, len(policies))

	for i, p := range policies {
		if p == nil {
			return nil, invalidConfig("pipeline policy %d is nil", i)
		}

		keys = append(keys, p.Key())
	}

	return &Pipeline[T]{
		key:      "wrap(" + strings.Join(keys, ",") + ")",
		policies: append([]Policy[T](nil), policies...),
	}, nil
}

// Wrap returns a new pipeline with inner appended inside p, mirroring the
// fluent outer.Wrap(inner) composition style. p is unchanged.
func (p *Pipeline[T]) Wrap(inner ...Policy[T]) (*Pipeline[T], error) {
	all := make([]Policy[T], 0, len(p.policies)+len(inner))
	all = append(all, p.policies...)
	all = append(all, inner...)

	wrapped, err := Wrap(all...)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(p.key, "wrap(") {
		wrapped.key = p.key
	}

	return wrapped, nil
}

// Named returns a copy of p with the given key.
func (p *Pipeline[T]) Named(key string) *Pipeline[T] {
	return &Pipeline[T]{key: key, policies: p.policies}
}

// Key returns the pipeline key.
func (p *Pipeline[T]) Key() string { return p.key }

// Policies returns the composed policies, outermost first.
func (p *Pipeline[T]) Policies() []Policy[T] {
	return append([]Policy[T](nil), p.policies...)
}

// Execute runs op through every policy. A fresh [ExecutionContext] is
// attached to ctx unless ctx already carries one.
func (p *Pipeline[T]) Execute(ctx context.Context, op Operation[T]) Outcome[T] {
	var clock Clock
	if c, ok := p.policies[0].(clocked); ok {
		clock = c.policyClock()
	}

	ctx, _ = ensureExecution(ctx, clock)

	next := op
	for i := len(p.policies) - 1; i > 0; i-- {
		policy, inner := p.policies[i], next
		next = func(ctx context.Context) (T, error) {
			return policy.Execute(ctx, inner).Unpack()
		}
	}

	return p.policies[0].Execute(ctx, next)
}

// Do runs op through the pipeline and unpacks the outcome.
//
//nolint:ireturn // generic type parameter T, not an interface
func (p *Pipeline[T]) Do(ctx context.Context, op Operation[T]) (T, error) {
	return p.Execute(ctx, op).Unpack()
}
