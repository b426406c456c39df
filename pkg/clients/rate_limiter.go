// Package clients provides the shared HTTP client stack for source
// connectors: a tuned transport, token-bucket rate limiting, and circuit
// breaker protection.
package clients

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/retailstream/harvester/pkg/errors"
)

// RateLimiter defines the interface for rate limiting implementations.
type RateLimiter interface {
	// Allow checks if a request is allowed right now
	Allow() bool

	// Wait blocks until a request is allowed
	Wait(ctx context.Context) error

	// GetStats returns rate limiter statistics
	GetStats() RateLimiterStats
}

// RateLimiterStats represents rate limiter statistics
type RateLimiterStats struct {
	Rate            float64
	Burst           int
	AllowedRequests int64
	BlockedRequests int64
}

// NewRateLimiter creates a token-bucket rate limiter with the specified rate
// (requests per second) and burst size.
func NewRateLimiter(rate float64, burst int) RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &tokenBucketLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastRefill: time.Now(),
	}
}

type tokenBucketLimiter struct {
	rate       float64
	burst      int
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex

	allowed int64
	blocked int64
}

// refill must be called with mu held.
func (l *tokenBucketLimiter) refill(now time.Time) {
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.tokens += elapsed * l.rate
	if l.tokens > float64(l.burst) {
		l.tokens = float64(l.burst)
	}
	l.lastRefill = now
}

func (l *tokenBucketLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill(time.Now())
	if l.tokens >= 1 {
		l.tokens--
		atomic.AddInt64(&l.allowed, 1)
		return true
	}
	atomic.AddInt64(&l.blocked, 1)
	return false
}

func (l *tokenBucketLimiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		l.refill(now)
		if l.tokens >= 1 {
			l.tokens--
			atomic.AddInt64(&l.allowed, 1)
			l.mu.Unlock()
			return nil
		}
		// Time until the next token becomes available.
		wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			atomic.AddInt64(&l.blocked, 1)
			return errors.Wrap(ctx.Err(), errors.ErrorTypeRateLimit, "rate limit wait cancelled")
		case <-timer.C:
		}
	}
}

func (l *tokenBucketLimiter) GetStats() RateLimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return RateLimiterStats{
		Rate:            l.rate,
		Burst:           l.burst,
		AllowedRequests: atomic.LoadInt64(&l.allowed),
		BlockedRequests: atomic.LoadInt64(&l.blocked),
	}
}
