package bastion

import "errors"

// Pattern: Specification — a fault predicate decides whether an outcome is a
// handled fault; predicates combine by logical OR.

// FaultPredicate classifies an outcome as a fault the policy should react to.
type FaultPredicate[T any] func(Outcome[T]) bool

// HandleError matches every failed outcome.
func HandleError[T any]() FaultPredicate[T] {
	return func(o Outcome[T]) bool { return o.Err != nil }
}

// HandleErrorIs matches failed outcomes whose error matches any of targets
// through [errors.Is].
func HandleErrorIs[T any](targets ...error) FaultPredicate[T] {
	return func(o Outcome[T]) bool {
		if o.Err == nil {
			return false
		}

		for _, target := range targets {
			if errors.Is(o.Err, target) {
				return true
			}
		}

		return false
	}
}

// HandleErrorAs matches failed outcomes whose error chain contains an E.
func HandleErrorAs[T any, E error]() FaultPredicate[T] {
	return func(o Outcome[T]) bool {
		if o.Err == nil {
			return false
		}

		var target E

		return errors.As(o.Err, &target)
	}
}

// HandleErrorIf matches failed outcomes for which fn returns true.
func HandleErrorIf[T any](fn func(error) bool) FaultPredicate[T] {
	return func(o Outcome[T]) bool {
		return o.Err != nil && fn(o.Err)
	}
}

// HandleTransient matches failures not explicitly marked [Permanent].
func HandleTransient[T any]() FaultPredicate[T] {
	return func(o Outcome[T]) bool { return IsTransient(o.Err) }
}

// HandleResult matches successful outcomes whose value satisfies fn, e.g. an
// HTTP response with a non-2xx status.
func HandleResult[T any](fn func(T) bool) FaultPredicate[T] {
	return func(o Outcome[T]) bool {
		return o.Err == nil && fn(o.Value)
	}
}

// Or combines predicates with logical OR. Nil predicates are skipped; the
// result of combining nothing never matches.
func Or[T any](predicates ...FaultPredicate[T]) FaultPredicate[T] {
	preds := make([]FaultPredicate[T], 0, len(predicates))
	for _, p := range predicates {
		if p != nil {
			preds = append(preds, p)
		}
	}

	return func(o Outcome[T]) bool {
		for _, p := range preds {
			if p(o) {
				return true
			}
		}

		return false
	}
}

// Or returns p OR others.
func (p FaultPredicate[T]) Or(others ...FaultPredicate[T]) FaultPredicate[T] {
	return Or(append([]FaultPredicate[T]{p}, others...)...)
}
