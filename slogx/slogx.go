// Package slogx logs bastion policy events with log/slog.
package slogx

import (
	"context"
	"log/slog"

	"github.com/byte4ever/bastion"
)

// Hooks returns policy hooks writing one record per event to logger. Retries
// and fallbacks are logged at Warn, timeouts and cancellations at Error. A
// nil logger selects slog.Default().
func Hooks(logger *slog.Logger) bastion.Hooks {
	if logger == nil {
		logger = slog.Default()
	}

	return bastion.Hooks{
		OnRetry: func(ctx context.Context, ev bastion.RetryEvent) {
			logger.WarnContext(ctx, "retrying",
				"policy", ev.PolicyKey,
				"attempt", ev.Attempt,
				"delay_ms", ev.Delay.Milliseconds(),
				"elapsed_ms", ev.Elapsed.Milliseconds(),
				"error", ev.Err,
			)
		},
		OnTimeout: func(ctx context.Context, ev bastion.TimeoutEvent) {
			logger.ErrorContext(ctx, "timed out",
				"policy", ev.PolicyKey,
				"timeout_ms", ev.Timeout.Milliseconds(),
				"elapsed_ms", ev.Elapsed.Milliseconds(),
			)
		},
		OnFallback: func(ctx context.Context, ev bastion.FallbackEvent) {
			logger.WarnContext(ctx, "falling back",
				"policy", ev.PolicyKey,
				"elapsed_ms", ev.Elapsed.Milliseconds(),
				"error", ev.Err,
			)
		},
		OnCancelled: func(ctx context.Context, ev bastion.CancelEvent) {
			logger.ErrorContext(ctx, "cancelled",
				"policy", ev.PolicyKey,
				"elapsed_ms", ev.Elapsed.Milliseconds(),
				"cause", ev.Cause,
			)
		},
	}
}
