package ratelimit

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmmcquay/reversi-mcp/internal/config"
	"github.com/dmmcquay/reversi-mcp/internal/logging"
)

func testLogger() logging.ContextLogger {
	return logging.NewLoggerWithWriter(io.Discard, &logging.Config{
		Level:  "debug",
		Format: logging.FormatJSON,
	})
}

func newTestLimiter(t *testing.T, cfg *config.RateLimitConfig) *Limiter {
	t.Helper()
	cfg.Enabled = true
	l := NewLimiter(cfg, testLogger())
	if l == nil {
		t.Fatal("Expected non-nil limiter when enabled")
	}
	t.Cleanup(l.Stop)
	return l
}

func TestLimiter(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		if NewLimiter(&config.RateLimitConfig{Enabled: false}, testLogger()) != nil {
			t.Error("Expected nil limiter when disabled")
		}
		if NewLimiter(nil, testLogger()) != nil {
			t.Error("Expected nil limiter for nil config")
		}

		var l *Limiter
		if ok, err := l.Allow("client", "bestMove"); !ok || err != nil {
			t.Errorf("Nil limiter must allow: %v", err)
		}
		if l.Wait("bestMove") != 0 {
			t.Error("Nil limiter must not wait")
		}
		l.Reset()
		l.Stop()
	})

	t.Run("NormalizesOperationNames", func(t *testing.T) {
		l := newTestLimiter(t, &config.RateLimitConfig{
			RequestsPerMin: 60,
			BurstSize:      10,
			PerToolLimits: map[string]int{
				"bestMove":        30,
				"analyzeposition": 10,
			},
		})
		if len(l.opBuckets) != 2 {
			t.Fatalf("Expected 2 operation buckets, got %d", len(l.opBuckets))
		}
		if _, ok := l.opBuckets["bestmove"]; !ok {
			t.Error("Expected bucket under lowercase name")
		}
		if l.opBuckets["bestmove"].capacity != 5 {
			t.Errorf("Expected burst 5 for 30/min, got %d", l.opBuckets["bestmove"].capacity)
		}
		if l.opBuckets["analyzeposition"].capacity != 1 {
			t.Errorf("Expected burst floor 1, got %d", l.opBuckets["analyzeposition"].capacity)
		}
	})

	t.Run("GlobalLimit", func(t *testing.T) {
		l := newTestLimiter(t, &config.RateLimitConfig{
			RequestsPerMin: 60,
			BurstSize:      5,
		})

		for i := 0; i < 5; i++ {
			if ok, err := l.Allow("", "move"); !ok || err != nil {
				t.Errorf("Request %d should be allowed: %v", i+1, err)
			}
		}

		ok, err := l.Allow("", "move")
		if ok || err == nil {
			t.Fatal("Request should be denied after burst")
		}
		if !errors.Is(err, ErrRateLimited) {
			t.Errorf("Expected ErrRateLimited, got %v", err)
		}
		var limitErr *LimitError
		if !errors.As(err, &limitErr) || limitErr.Scope != "global" {
			t.Errorf("Expected global LimitError, got %#v", err)
		}
		if limitErr.RetryAfter <= 0 {
			t.Errorf("Expected positive RetryAfter, got %v", limitErr.RetryAfter)
		}
	})

	t.Run("OperationLimit", func(t *testing.T) {
		l := newTestLimiter(t, &config.RateLimitConfig{
			RequestsPerMin: 600,
			BurstSize:      10,
			PerToolLimits:  map[string]int{"analyzeposition": 60},
		})

		if ok, err := l.Allow("", "analyzePosition"); !ok {
			t.Errorf("First request should be allowed: %v", err)
		}
		before := l.globalBucket.Tokens()

		ok, err := l.Allow("", "AnalyzePosition")
		if ok {
			t.Fatal("Second request should be denied by operation limit")
		}
		var limitErr *LimitError
		if !errors.As(err, &limitErr) || limitErr.Scope != "operation" || limitErr.Operation != "analyzeposition" {
			t.Errorf("Expected operation LimitError, got %#v", err)
		}
		if after := l.globalBucket.Tokens(); after < before-0.01 {
			t.Errorf("Rejected request should refund the global token: %f -> %f", before, after)
		}

		if ok, err := l.Allow("", "bestMove"); !ok {
			t.Errorf("Other operations should be allowed: %v", err)
		}
	})

	t.Run("ClientLimit", func(t *testing.T) {
		l := newTestLimiter(t, &config.RateLimitConfig{
			RequestsPerMin: 600,
			BurstSize:      20,
		})

		for i := 0; i < 10; i++ {
			if ok, err := l.Allow("client1", "move"); !ok {
				t.Errorf("Client1 request %d should be allowed: %v", i+1, err)
			}
		}
		if ok, err := l.Allow("client2", "move"); !ok {
			t.Errorf("Client2 should be allowed: %v", err)
		}
		for i := 0; i < 9; i++ {
			_, _ = l.Allow("client1", "move")
		}

		if ok, _ := l.Allow("client3", "move"); ok {
			t.Error("Client3 should be rate limited by the global bucket")
		}
	})

	t.Run("ClientOperationLimit", func(t *testing.T) {
		l := newTestLimiter(t, &config.RateLimitConfig{
			RequestsPerMin: 6000,
			BurstSize:      100,
			PerToolLimits:  map[string]int{"move": 120},
		})
		// Operation burst is 2 and shared; the per-client copy is also 2.
		for i := 0; i < 2; i++ {
			if ok, err := l.Allow("client1", "move"); !ok {
				t.Fatalf("Request %d should be allowed: %v", i+1, err)
			}
		}
		ok, err := l.Allow("client1", "move")
		if ok {
			t.Fatal("Third request should be denied")
		}
		if !errors.Is(err, ErrRateLimited) {
			t.Errorf("Expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("Wait", func(t *testing.T) {
		l := newTestLimiter(t, &config.RateLimitConfig{
			RequestsPerMin: 600,
			BurstSize:      5,
		})
		for i := 0; i < 5; i++ {
			_, _ = l.Allow("", "move")
		}

		wait := l.Wait("move")
		expected := 100 * time.Millisecond
		if wait < expected-10*time.Millisecond || wait > expected+10*time.Millisecond {
			t.Errorf("Expected wait ~%v, got %v", expected, wait)
		}
		if again := l.Wait("move"); again > wait+time.Millisecond {
			t.Errorf("Wait must not reserve tokens: %v then %v", wait, again)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		l := newTestLimiter(t, &config.RateLimitConfig{
			RequestsPerMin: 60,
			BurstSize:      5,
		})
		for i := 0; i < 5; i++ {
			_, _ = l.Allow("client1", "move")
		}
		if ok, _ := l.Allow("client1", "move"); ok {
			t.Error("Should be denied after using all tokens")
		}

		l.Reset()

		if ok, err := l.Allow("client1", "move"); !ok {
			t.Errorf("Should be allowed after reset: %v", err)
		}
	})

	t.Run("GetStatus", func(t *testing.T) {
		var nilLimiter *Limiter
		if nilLimiter.GetStatus()["enabled"].(bool) {
			t.Error("Nil limiter should report disabled")
		}

		l := newTestLimiter(t, &config.RateLimitConfig{
			RequestsPerMin: 60,
			BurstSize:      10,
			PerToolLimits:  map[string]int{"bestMove": 30},
		})
		l.Allow("client1", "bestMove")

		status := l.GetStatus()
		if !status["enabled"].(bool) {
			t.Error("Active limiter should report enabled")
		}
		if status["requestsPerMin"].(int) != 60 {
			t.Errorf("Expected requestsPerMin 60, got %v", status["requestsPerMin"])
		}
		if status["activeClients"].(int) != 1 {
			t.Errorf("Expected 1 active client, got %v", status["activeClients"])
		}
		ops := status["operationLimits"].(map[string]interface{})
		if _, ok := ops["bestmove"]; !ok {
			t.Errorf("Expected bestmove in operation limits, got %v", ops)
		}
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		l := newTestLimiter(t, &config.RateLimitConfig{
			RequestsPerMin: 6000,
			BurstSize:      100,
		})

		var allowed, denied int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(clientID int) {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					if ok, _ := l.Allow(fmt.Sprintf("client%d", clientID), "move"); ok {
						atomic.AddInt32(&allowed, 1)
					} else {
						atomic.AddInt32(&denied, 1)
					}
					time.Sleep(time.Millisecond)
				}
			}(i)
		}
		wg.Wait()

		if allowed < 95 || allowed > 115 {
			t.Errorf("Expected ~100 allowed requests, got %d", allowed)
		}
		if allowed+denied != 200 {
			t.Errorf("Expected 200 decisions, got %d", allowed+denied)
		}
	})

	t.Run("StaleClientCleanup", func(t *testing.T) {
		l := newTestLimiter(t, &config.RateLimitConfig{
			RequestsPerMin: 60,
			BurstSize:      10,
		})
		l.Allow("client1", "move")
		l.Allow("client2", "move")

		l.mu.Lock()
		l.clientLimits["client1"].lastSeen = time.Now().Add(-staleTimeout - time.Minute)
		l.mu.Unlock()

		if removed := l.removeStale(time.Now()); removed != 1 {
			t.Errorf("Expected 1 stale client removed, got %d", removed)
		}
		if len(l.clientLimits) != 1 {
			t.Errorf("Expected 1 client left, got %d", len(l.clientLimits))
		}
	})
}
