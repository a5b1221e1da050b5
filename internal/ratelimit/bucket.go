package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a token bucket refilled continuously at a fixed rate.
type TokenBucket struct {
	capacity   int
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes n tokens if they are available.
func (b *TokenBucket) Allow(n int) bool {
	return b.AllowN(n, time.Now())
}

// AllowN is Allow at a given instant.
func (b *TokenBucket) AllowN(n int, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(now)
	if b.tokens >= float64(n) {
		b.tokens -= float64(n)
		return true
	}
	return false
}

// Refund returns n tokens taken by an Allow whose request was then rejected
// elsewhere.
func (b *TokenBucket) Refund(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += float64(n)
	if b.tokens > float64(b.capacity) {
		b.tokens = float64(b.capacity)
	}
}

// Delay reports how long until n tokens are available. It consumes nothing.
func (b *TokenBucket) Delay(n int) time.Duration {
	return b.DelayN(n, time.Now())
}

// DelayN is Delay at a given instant.
func (b *TokenBucket) DelayN(n int, now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(now)
	deficit := float64(n) - b.tokens
	if deficit <= 0 {
		return 0
	}
	if b.refillRate <= 0 {
		return time.Duration(1<<63 - 1)
	}
	return time.Duration(deficit / b.refillRate * float64(time.Second))
}

// Tokens returns the current number of tokens available.
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(time.Now())
	return b.tokens
}

// refill must be called with b.mu held.
func (b *TokenBucket) refill(now time.Time) {
	if now.Before(b.lastRefill) {
		return
	}
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > float64(b.capacity) {
		b.tokens = float64(b.capacity)
	}
	b.lastRefill = now
}

// Reset refills the bucket to capacity.
func (b *TokenBucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = float64(b.capacity)
	b.lastRefill = time.Now()
}
