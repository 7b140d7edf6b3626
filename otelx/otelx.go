// Package otelx reports bastion policy events through OpenTelemetry.
//
// Each event is added to the span active in the operation's context and
// counted on a meter, both attributed with the policy key.
package otelx

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/byte4ever/bastion"
)

// Attribute keys attached to span events and measurements.
const (
	PolicyKey  = attribute.Key("bastion.policy")
	AttemptKey = attribute.Key("bastion.attempt")
	DelayKey   = attribute.Key("bastion.delay_ms")
	TimeoutKey = attribute.Key("bastion.timeout_ms")
)

// Telemetry holds the instruments fed by [Telemetry.Hooks].
type Telemetry struct {
	retries       metric.Int64Counter
	timeouts      metric.Int64Counter
	fallbacks     metric.Int64Counter
	cancellations metric.Int64Counter
	retryDelay    metric.Float64Histogram
}

// New creates the bastion instruments on meter.
func New(meter metric.Meter) (*Telemetry, error) {
	retries, err := meter.Int64Counter(
		"bastion.retries",
		metric.WithDescription("Total number of retries scheduled"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	timeouts, err := meter.Int64Counter(
		"bastion.timeouts",
		metric.WithDescription("Total number of operations abandoned by a timeout"),
		metric.WithUnit("{timeout}"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(
		"bastion.fallbacks",
		metric.WithDescription("Total number of faults replaced by a fallback"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return nil, err
	}

	cancellations, err := meter.Int64Counter(
		"bastion.cancellations",
		metric.WithDescription("Total number of executions preempted by the caller"),
		metric.WithUnit("{cancellation}"),
	)
	if err != nil {
		return nil, err
	}

	retryDelay, err := meter.Float64Histogram(
		"bastion.retry.delay_ms",
		metric.WithDescription("Delay waited before each retry in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		retries:       retries,
		timeouts:      timeouts,
		fallbacks:     fallbacks,
		cancellations: cancellations,
		retryDelay:    retryDelay,
	}, nil
}

// Hooks returns policy hooks recording span events and measurements.
func (t *Telemetry) Hooks() bastion.Hooks {
	return bastion.Hooks{
		OnRetry: func(ctx context.Context, ev bastion.RetryEvent) {
			policy := metric.WithAttributes(PolicyKey.String(ev.PolicyKey))
			t.retries.Add(ctx, 1, policy)
			t.retryDelay.Record(ctx, float64(ev.Delay.Microseconds())/1000, policy)

			span := trace.SpanFromContext(ctx)
			span.AddEvent("bastion.retry", trace.WithAttributes(
				PolicyKey.String(ev.PolicyKey),
				AttemptKey.Int(ev.Attempt),
				DelayKey.Int64(ev.Delay.Milliseconds()),
			))

			if ev.Err != nil {
				span.RecordError(ev.Err)
			}
		},
		OnTimeout: func(ctx context.Context, ev bastion.TimeoutEvent) {
			t.timeouts.Add(ctx, 1, metric.WithAttributes(PolicyKey.String(ev.PolicyKey)))
			trace.SpanFromContext(ctx).AddEvent("bastion.timeout", trace.WithAttributes(
				PolicyKey.String(ev.PolicyKey),
				TimeoutKey.Int64(ev.Timeout.Milliseconds()),
			))
		},
		OnFallback: func(ctx context.Context, ev bastion.FallbackEvent) {
			t.fallbacks.Add(ctx, 1, metric.WithAttributes(PolicyKey.String(ev.PolicyKey)))
			trace.SpanFromContext(ctx).AddEvent("bastion.fallback", trace.WithAttributes(
				PolicyKey.String(ev.PolicyKey),
			))
		},
		OnCancelled: func(ctx context.Context, ev bastion.CancelEvent) {
			t.cancellations.Add(ctx, 1, metric.WithAttributes(PolicyKey.String(ev.PolicyKey)))
			trace.SpanFromContext(ctx).AddEvent("bastion.cancelled", trace.WithAttributes(
				PolicyKey.String(ev.PolicyKey),
			))
		},
	}
}
