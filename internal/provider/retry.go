package provider

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds the retry loop around provider calls.
type RetryConfig struct {
	MaxRetries int           // Total attempts; values < 1 mean a single attempt
	BaseDelay  time.Duration // Delay before attempt k (0-indexed) is BaseDelay * 2^k
}

// withRetry runs fn up to cfg.MaxRetries times, backing off exponentially
// between attempts. Only retryable provider errors are attempted again; 4xx
// and schema errors surface immediately.
func withRetry[T any](ctx context.Context, cfg RetryConfig, logger *zap.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := cfg.BaseDelay << uint(attempt-1)
			RetriesTotal.WithLabelValues(op).Inc()
			logger.Debug("provider-retrying",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return zero, Classify(ctx.Err(), 0, "")
			case <-time.After(delay):
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err

		var perr *Error
		if !errors.As(err, &perr) || !perr.Retryable() {
			return zero, err
		}

		// Context cancellation ends the loop even for retryable errors.
		if ctx.Err() != nil {
			return zero, Classify(ctx.Err(), 0, "")
		}
	}

	return zero, lastErr
}
