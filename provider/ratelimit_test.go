package provider

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_TryAcquire(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         3,
	})

	for i := 0; i < 3; i++ {
		if !limiter.TryAcquire() {
			t.Errorf("Expected to acquire token %d", i)
		}
	}

	if limiter.TryAcquire() {
		t.Error("Expected fourth acquire to fail")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: 600, // 10 per second
		BurstSize:         1,
	})

	limiter.TryAcquire()

	if limiter.TryAcquire() {
		t.Error("Expected acquire to fail after drain")
	}

	time.Sleep(150 * time.Millisecond)

	if !limiter.TryAcquire() {
		t.Error("Expected acquire to succeed after refill")
	}
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: 1, // Slow enough that Wait must block
		BurstSize:         1,
	})

	limiter.TryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Error("Expected Wait to fail on cancelled context")
	}
}

func TestRateLimited_Delegates(t *testing.T) {
	mock := NewMockProvider()
	p := NewRateLimited(mock, RateLimitConfig{RequestsPerMinute: 600, BurstSize: 10})

	if p.Name() != "mock" {
		t.Errorf("Name() = %q, want mock", p.Name())
	}

	results, err := p.TranslateBatch(context.Background(), []string{"Hello"}, "en", "ru_RU")
	if err != nil {
		t.Fatalf("TranslateBatch() error = %v", err)
	}
	if results[0].Text != "Привет" {
		t.Errorf("Text = %q, want Привет", results[0].Text)
	}
	if mock.CallCount != 1 {
		t.Errorf("CallCount = %d, want 1", mock.CallCount)
	}
}
