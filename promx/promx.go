// Package promx exports bastion policy events as Prometheus metrics.
package promx

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/byte4ever/bastion"
)

// Collector holds the metric vectors fed by [Collector.Hooks]. Every vector
// is labelled by policy key.
type Collector struct {
	retries       *prometheus.CounterVec
	retryDelay    *prometheus.HistogramVec
	timeouts      *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	cancellations *prometheus.CounterVec
}

// New registers the bastion metrics on reg under namespace. A nil reg
// selects prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Collector{
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retries scheduled.",
		}, []string{"policy"}),
		retryDelay: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retry_delay_seconds",
			Help:      "Delay waited before each retry in seconds.",
			Buckets:   []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"policy"}),
		timeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeouts_total",
			Help:      "Total number of operations abandoned by a timeout.",
		}, []string{"policy"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of faults replaced by a fallback.",
		}, []string{"policy"}),
		cancellations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Total number of executions preempted by the caller.",
		}, []string{"policy", "reason"}),
	}
}

// Hooks returns policy hooks updating the collector.
func (c *Collector) Hooks() bastion.Hooks {
	return bastion.Hooks{
		OnRetry: func(_ context.Context, ev bastion.RetryEvent) {
			c.retries.WithLabelValues(ev.PolicyKey).Inc()
			c.retryDelay.WithLabelValues(ev.PolicyKey).Observe(ev.Delay.Seconds())
		},
		OnTimeout: func(_ context.Context, ev bastion.TimeoutEvent) {
			c.timeouts.WithLabelValues(ev.PolicyKey).Inc()
		},
		OnFallback: func(_ context.Context, ev bastion.FallbackEvent) {
			c.fallbacks.WithLabelValues(ev.PolicyKey).Inc()
		},
		OnCancelled: func(_ context.Context, ev bastion.CancelEvent) {
			c.cancellations.WithLabelValues(ev.PolicyKey, reason(ev.Cause)).Inc()
		},
	}
}

func reason(cause error) string {
	switch {
	case errors.Is(cause, context.DeadlineExceeded):
		return "deadline"
	case errors.Is(cause, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}
