package loctool

import (
	"context"
	"time"
)

// BackoffConfig holds configuration for retry behavior.
type BackoffConfig struct {
	MaxRetries int           // Maximum number of retry attempts
	BaseDelay  time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum delay between retries
}

// DefaultBackoffConfig returns sensible defaults for transient failures.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Delay returns the backoff duration before retry number attempt
// (0-based): BaseDelay doubled per attempt, capped at MaxDelay. Pure
// function of the attempt number so the ladder is reproducible in tests.
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := c.BaseDelay * time.Duration(1<<uint(attempt))
	if delay > c.MaxDelay || delay <= 0 {
		delay = c.MaxDelay
	}
	return delay
}

// Rate-limit ladder: 30s plus 10s per prior rate-limited attempt, capped at
// two minutes. Matches the pacing the DeepL high-load handling settled on.
const (
	rateLimitBase = 30 * time.Second
	rateLimitStep = 10 * time.Second
	rateLimitCap  = 120 * time.Second
)

// RateLimitDelay returns the backoff before retry number attempt (0-based)
// of a rate-limited batch.
func RateLimitDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := rateLimitBase + time.Duration(attempt)*rateLimitStep
	if delay > rateLimitCap {
		delay = rateLimitCap
	}
	return delay
}

// SleepFunc blocks for the given duration or until the context is done.
// Injected into retry loops so tests run without real time delays.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc, backed by a real timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryFunc is a function that can be retried.
type RetryFunc[T any] func() (T, error)

// WithRetry executes fn with bounded exponential backoff, sleeping through
// sleep (Sleep when nil). Non-retryable errors are returned immediately.
func WithRetry[T any](ctx context.Context, cfg BackoffConfig, sleep SleepFunc, fn RetryFunc[T]) (T, error) {
	var lastErr error
	var zero T

	if sleep == nil {
		sleep = Sleep
	}

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		// No sleep after the last attempt.
		if attempt < cfg.MaxRetries {
			delay := cfg.Delay(attempt)
			if hint, ok := IsRateLimit(err); ok && hint > 0 {
				delay = hint
			}
			if err := sleep(ctx, delay); err != nil {
				return zero, err
			}
		}
	}

	return zero, lastErr
}
