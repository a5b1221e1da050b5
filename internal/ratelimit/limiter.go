package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmmcquay/reversi-mcp/internal/config"
	"github.com/dmmcquay/reversi-mcp/internal/logging"
)

const (
	cleanupInterval = 5 * time.Minute
	staleTimeout    = 30 * time.Minute
)

// ErrRateLimited is wrapped by every LimitError.
var ErrRateLimited = errors.New("rate limit exceeded")

// LimitError says which limit rejected a request and when to retry.
type LimitError struct {
	Scope      string // "global", "operation", "client" or "client-operation"
	Operation  string
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	switch e.Scope {
	case "operation", "client-operation":
		return fmt.Sprintf("%s rate limit exceeded for %s", e.Scope, e.Operation)
	default:
		return fmt.Sprintf("%s rate limit exceeded", e.Scope)
	}
}

func (e *LimitError) Unwrap() error {
	return ErrRateLimited
}

// Limiter applies a global limit, optional per-operation limits and the same
// limits again per client. Operation names are case-insensitive.
type Limiter struct {
	logger        logging.ContextLogger
	config        *config.RateLimitConfig
	opLimits      map[string]int
	globalBucket  *TokenBucket
	opBuckets     map[string]*TokenBucket
	clientLimits  map[string]*clientRateLimit
	mu            sync.RWMutex
	stopCleanup   context.CancelFunc
	cleanupFinish chan struct{}
}

type clientRateLimit struct {
	globalBucket *TokenBucket
	opBuckets    map[string]*TokenBucket
	lastSeen     time.Time
}

// NewLimiter returns nil when rate limiting is disabled; a nil *Limiter
// allows everything.
func NewLimiter(cfg *config.RateLimitConfig, logger logging.ContextLogger) *Limiter {
	if cfg == nil || !cfg.Enabled || cfg.RequestsPerMin <= 0 {
		return nil
	}

	l := &Limiter{
		logger:        logger,
		config:        cfg,
		opLimits:      make(map[string]int, len(cfg.PerToolLimits)),
		globalBucket:  NewTokenBucket(cfg.BurstSize, perSecond(cfg.RequestsPerMin)),
		opBuckets:     make(map[string]*TokenBucket),
		clientLimits:  make(map[string]*clientRateLimit),
		cleanupFinish: make(chan struct{}),
	}
	for op, limit := range cfg.PerToolLimits {
		op = normalize(op)
		l.opLimits[op] = limit
		l.opBuckets[op] = l.newOpBucket(limit)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.stopCleanup = cancel
	go l.cleanupStaleClients(ctx)

	return l
}

func normalize(op string) string {
	return strings.ToLower(op)
}

func perSecond(perMinute int) float64 {
	return float64(perMinute) / 60.0
}

// newOpBucket keeps the global burst-to-rate ratio.
func (l *Limiter) newOpBucket(limit int) *TokenBucket {
	burst := (l.config.BurstSize * limit) / l.config.RequestsPerMin
	if burst < 1 {
		burst = 1
	}
	return NewTokenBucket(burst, perSecond(limit))
}

// Allow checks one request from clientID for operation. An empty clientID
// skips the per-client limits.
func (l *Limiter) Allow(clientID, operation string) (bool, error) {
	if l == nil {
		return true, nil
	}
	op := normalize(operation)

	if !l.globalBucket.Allow(1) {
		l.logger.Warn("Global rate limit exceeded", "client", clientID, "operation", op)
		return false, &LimitError{Scope: "global", Operation: op, RetryAfter: l.globalBucket.Delay(1)}
	}

	l.mu.RLock()
	opBucket, hasOpLimit := l.opBuckets[op]
	l.mu.RUnlock()

	if hasOpLimit && !opBucket.Allow(1) {
		l.globalBucket.Refund(1)
		l.logger.Warn("Operation rate limit exceeded", "client", clientID, "operation", op)
		return false, &LimitError{Scope: "operation", Operation: op, RetryAfter: opBucket.Delay(1)}
	}

	if clientID != "" {
		if err := l.checkClientLimit(clientID, op); err != nil {
			l.globalBucket.Refund(1)
			if hasOpLimit {
				opBucket.Refund(1)
			}
			return false, err
		}
	}

	return true, nil
}

func (l *Limiter) checkClientLimit(clientID, op string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	client, ok := l.clientLimits[clientID]
	if !ok {
		client = &clientRateLimit{
			globalBucket: NewTokenBucket(l.config.BurstSize, perSecond(l.config.RequestsPerMin)),
			opBuckets:    make(map[string]*TokenBucket),
		}
		l.clientLimits[clientID] = client
	}
	client.lastSeen = time.Now()

	if !client.globalBucket.Allow(1) {
		l.logger.Warn("Client rate limit exceeded", "client", clientID, "operation", op)
		return &LimitError{Scope: "client", Operation: op, RetryAfter: client.globalBucket.Delay(1)}
	}

	limit, ok := l.opLimits[op]
	if !ok {
		return nil
	}
	bucket, ok := client.opBuckets[op]
	if !ok {
		bucket = l.newOpBucket(limit)
		client.opBuckets[op] = bucket
	}
	if !bucket.Allow(1) {
		client.globalBucket.Refund(1)
		l.logger.Warn("Client operation rate limit exceeded", "client", clientID, "operation", op)
		return &LimitError{Scope: "client-operation", Operation: op, RetryAfter: bucket.Delay(1)}
	}
	return nil
}

// Wait returns how long until the global and operation buckets would admit
// another request.
func (l *Limiter) Wait(operation string) time.Duration {
	if l == nil {
		return 0
	}
	wait := l.globalBucket.Delay(1)

	l.mu.RLock()
	opBucket, ok := l.opBuckets[normalize(operation)]
	l.mu.RUnlock()
	if ok {
		if d := opBucket.Delay(1); d > wait {
			wait = d
		}
	}
	return wait
}

// Reset refills every bucket.
func (l *Limiter) Reset() {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.globalBucket.Reset()
	for _, bucket := range l.opBuckets {
		bucket.Reset()
	}
	for _, client := range l.clientLimits {
		client.globalBucket.Reset()
		for _, bucket := range client.opBuckets {
			bucket.Reset()
		}
	}
}

// Stop ends the background cleanup.
func (l *Limiter) Stop() {
	if l == nil {
		return
	}
	l.stopCleanup()
	<-l.cleanupFinish
}

func (l *Limiter) cleanupStaleClients(ctx context.Context) {
	defer close(l.cleanupFinish)
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.removeStale(now)
		}
	}
}

func (l *Limiter) removeStale(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for clientID, client := range l.clientLimits {
		if now.Sub(client.lastSeen) > staleTimeout {
			delete(l.clientLimits, clientID)
			removed++
			l.logger.Debug("Removed stale client rate limit tracking", "client", clientID)
		}
	}
	return removed
}

// GetStatus returns the current status of rate limits for monitoring.
func (l *Limiter) GetStatus() map[string]interface{} {
	if l == nil {
		return map[string]interface{}{
			"enabled": false,
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	opStatus := make(map[string]interface{}, len(l.opBuckets))
	for op, bucket := range l.opBuckets {
		opStatus[op] = map[string]interface{}{
			"limit":  l.opLimits[op],
			"tokens": bucket.Tokens(),
		}
	}

	return map[string]interface{}{
		"enabled":         true,
		"requestsPerMin":  l.config.RequestsPerMin,
		"burstSize":       l.config.BurstSize,
		"globalTokens":    l.globalBucket.Tokens(),
		"activeClients":   len(l.clientLimits),
		"operationLimits": opStatus,
	}
}
