package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────────────
// Token bucket rate limiter
// ──────────────────────────────────────────────────────────────────────────────

const (
	bucketIdleTTL   = 10 * time.Minute
	janitorInterval = 5 * time.Minute
)

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// limiter keeps one token bucket per caller key.
type limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   float64
	now     func() time.Time
}

func newLimiter(perMinute, burst int) *limiter {
	if burst < 1 {
		burst = 1
	}
	return &limiter{
		buckets: make(map[string]*bucket),
		rate:    float64(perMinute) / 60,
		burst:   float64(burst),
		now:     time.Now,
	}
}

// allow spends one token of key's bucket.
func (l *limiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastSeen: now}
		l.buckets[key] = b
	}
	b.tokens += now.Sub(b.lastSeen).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets idle for longer than bucketIdleTTL.
func (l *limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-bucketIdleTTL)
	for k, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, k)
		}
	}
}

// RateLimitMiddleware limits each caller to perMinute requests with bursts of
// up to burst. Authenticated callers are keyed by operator, everyone else by
// client IP, so it must run after JWTMiddleware on protected groups.
func RateLimitMiddleware(perMinute, burst int) gin.HandlerFunc {
	l := newLimiter(perMinute, burst)

	go func() {
		ticker := time.NewTicker(janitorInterval)
		defer ticker.Stop()
		for range ticker.C {
			l.sweep()
		}
	}()

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if op := GetOperator(c); op != "" {
			key = "op:" + op
		}
		if !l.allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "too many requests, please slow down",
				"code":    "ERR_RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
