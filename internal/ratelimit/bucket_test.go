package ratelimit

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTokenBucket(t *testing.T) {
	t.Run("NewTokenBucket", func(t *testing.T) {
		bucket := NewTokenBucket(10, 1.0)
		if bucket.capacity != 10 {
			t.Errorf("Expected capacity 10, got %d", bucket.capacity)
		}
		if bucket.tokens != 10.0 {
			t.Errorf("Expected initial tokens 10, got %f", bucket.tokens)
		}
	})

	t.Run("AllowN", func(t *testing.T) {
		bucket := NewTokenBucket(5, 1.0)
		now := bucket.lastRefill

		if !bucket.AllowN(3, now) {
			t.Error("Expected AllowN(3) to succeed")
		}
		if bucket.AllowN(3, now) {
			t.Error("Expected AllowN(3) to fail with 2 tokens left")
		}
		if bucket.tokens != 2.0 {
			t.Errorf("A failed AllowN must not consume, got %f tokens", bucket.tokens)
		}
		if !bucket.AllowN(2, now) {
			t.Error("Expected AllowN(2) to succeed")
		}
	})

	t.Run("Refill", func(t *testing.T) {
		bucket := NewTokenBucket(10, 2.0)
		now := bucket.lastRefill

		bucket.AllowN(10, now)
		if bucket.tokens != 0.0 {
			t.Errorf("Expected 0 tokens, got %f", bucket.tokens)
		}

		bucket.AllowN(0, now.Add(time.Second))
		if bucket.tokens < 1.99 || bucket.tokens > 2.01 {
			t.Errorf("Expected ~2 tokens after 1 second, got %f", bucket.tokens)
		}

		bucket.AllowN(0, now.Add(10*time.Second))
		if bucket.tokens != 10.0 {
			t.Errorf("Expected tokens capped at capacity 10, got %f", bucket.tokens)
		}
	})

	t.Run("ClockGoingBackwards", func(t *testing.T) {
		bucket := NewTokenBucket(4, 1.0)
		now := bucket.lastRefill
		bucket.AllowN(4, now)
		bucket.AllowN(0, now.Add(-time.Hour))
		if bucket.tokens != 0 {
			t.Errorf("Expected no refill from an earlier instant, got %f", bucket.tokens)
		}
	})

	t.Run("Refund", func(t *testing.T) {
		bucket := NewTokenBucket(3, 0)
		bucket.Allow(2)
		bucket.Refund(1)
		if bucket.tokens != 2.0 {
			t.Errorf("Expected 2 tokens after refund, got %f", bucket.tokens)
		}
		bucket.Refund(10)
		if bucket.tokens != 3.0 {
			t.Errorf("Refund must cap at capacity, got %f", bucket.tokens)
		}
	})

	t.Run("Delay", func(t *testing.T) {
		bucket := NewTokenBucket(5, 10.0)
		now := bucket.lastRefill

		if d := bucket.DelayN(3, now); d != 0 {
			t.Errorf("Expected no delay, got %v", d)
		}
		if bucket.tokens != 5.0 {
			t.Errorf("Delay must not consume, got %f tokens", bucket.tokens)
		}

		bucket.AllowN(5, now)
		d := bucket.DelayN(3, now)
		if d < 290*time.Millisecond || d > 310*time.Millisecond {
			t.Errorf("Expected delay ~300ms, got %v", d)
		}

		empty := NewTokenBucket(1, 0)
		empty.Allow(1)
		if empty.Delay(1) <= 24*time.Hour {
			t.Error("A bucket that never refills should report an unbounded delay")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		bucket := NewTokenBucket(10, 1.0)
		bucket.Allow(10)

		bucket.Reset()
		if bucket.tokens != 10.0 {
			t.Errorf("Expected full capacity after reset, got %f", bucket.tokens)
		}
	})

	t.Run("Concurrent", func(t *testing.T) {
		bucket := NewTokenBucket(100, 10.0)
		var allowed int32
		done := make(chan bool)

		for i := 0; i < 10; i++ {
			go func() {
				localAllowed := 0
				for j := 0; j < 20; j++ {
					if bucket.Allow(1) {
						localAllowed++
					}
					time.Sleep(time.Millisecond)
				}
				atomic.AddInt32(&allowed, int32(localAllowed))
				done <- true
			}()
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		// Capacity plus whatever refilled while the goroutines ran.
		if allowed < 85 || allowed > 120 {
			t.Errorf("Expected ~100 allowed requests, got %d", allowed)
		}
	})
}
