package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter paces outgoing batches using a token bucket. One token is
// spent per TranslateBatch call, so RequestsPerMinute bounds batches, not
// individual strings.
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// RateLimitConfig configures the rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int // Maximum requests per minute (default: 60)
	BurstSize         int // Maximum burst size (default: same as RPM)
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rpm := float64(cfg.RequestsPerMinute)
	if rpm <= 0 {
		rpm = 60
	}

	burst := float64(cfg.BurstSize)
	if burst <= 0 {
		burst = rpm
	}

	return &RateLimiter{
		tokens:     burst,
		maxTokens:  burst,
		refillRate: rpm / 60.0,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		if r.TryAcquire() {
			return nil
		}

		r.mu.Lock()
		waitTime := time.Duration(float64(time.Second) / r.refillRate)
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// TryAcquire attempts to acquire a token without blocking.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()

	if r.tokens >= 1 {
		r.tokens--
		return true
	}

	return false
}

// refill adds tokens based on elapsed time (must be called with lock held).
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.lastRefill = now

	r.tokens += elapsed * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
}

// Available returns the current number of available tokens.
func (r *RateLimiter) Available() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refill()
	return r.tokens
}

// RateLimited wraps a Provider with client-side pacing, so a run stays
// under the provider's published request quota instead of bouncing off
// 429 responses.
type RateLimited struct {
	inner   Provider
	limiter *RateLimiter
}

// NewRateLimited creates a new rate-limited provider.
func NewRateLimited(inner Provider, cfg RateLimitConfig) *RateLimited {
	return &RateLimited{
		inner:   inner,
		limiter: NewRateLimiter(cfg),
	}
}

// Name returns the wrapped provider's name.
func (p *RateLimited) Name() string { return p.inner.Name() }

// TranslateBatch waits for a token, then delegates.
func (p *RateLimited) TranslateBatch(ctx context.Context, texts []string, sourceLocale, targetLocale string) ([]Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.TranslateBatch(ctx, texts, sourceLocale, targetLocale)
}

// Verify RateLimited implements Provider
var _ Provider = (*RateLimited)(nil)
