package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter enforces sliding-window request budgets per client key
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	buckets map[string][]time.Time
}

// NewRateLimiter creates a limiter with the given window
func NewRateLimiter(window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		window:  window,
		buckets: make(map[string][]time.Time),
	}

	go rl.sweep()

	return rl
}

// sweep drops idle buckets so the map does not grow with client churn
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, hits := range rl.buckets {
			var recent []time.Time
			for _, hit := range hits {
				if now.Sub(hit) < rl.window {
					recent = append(recent, hit)
				}
			}
			if len(recent) == 0 {
				delete(rl.buckets, key)
			} else {
				rl.buckets[key] = recent
			}
		}
		rl.mu.Unlock()
	}
}

// Allow records one hit for the key and reports whether it stays within limit
func (rl *RateLimiter) Allow(key string, limit int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := make([]time.Time, 0, len(rl.buckets[key])+1)
	for _, hit := range rl.buckets[key] {
		if now.Sub(hit) < rl.window {
			recent = append(recent, hit)
		}
	}

	if len(recent) >= limit {
		rl.buckets[key] = recent
		return false
	}

	rl.buckets[key] = append(recent, now)
	return true
}

func isIngestion(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodDelete
}

// RateLimit applies per-client request budgets. Measurement ingestion
// (POST/PUT/DELETE) draws from its own tighter budget than reads, and
// /health is never limited.
func RateLimit(readLimit, writeLimit int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(window)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		key := c.ClientIP() + "|read"
		limit := readLimit
		if isIngestion(c.Request.Method) {
			key = c.ClientIP() + "|write"
			limit = writeLimit
		}

		if !limiter.Allow(key, limit) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
