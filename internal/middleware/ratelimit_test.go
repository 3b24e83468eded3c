package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowEnforcesLimitPerKey(t *testing.T) {
	limiter := NewRateLimiter(time.Minute)

	assert.True(t, limiter.Allow("10.0.0.1|write", 2))
	assert.True(t, limiter.Allow("10.0.0.1|write", 2))
	assert.False(t, limiter.Allow("10.0.0.1|write", 2))

	// A different key has its own budget.
	assert.True(t, limiter.Allow("10.0.0.2|write", 2))
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	limiter := NewRateLimiter(20 * time.Millisecond)

	assert.True(t, limiter.Allow("10.0.0.1|read", 1))
	assert.False(t, limiter.Allow("10.0.0.1|read", 1))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, limiter.Allow("10.0.0.1|read", 1))
}

func rateLimitTestRouter(readLimit, writeLimit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(readLimit, writeLimit, time.Minute))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/health", ok)
	r.GET("/api/v1/paired-measurements", ok)
	r.POST("/api/v1/paired-measurements", ok)
	return r
}

func TestRateLimitSeparatesReadAndWriteBudgets(t *testing.T) {
	r := rateLimitTestRouter(10, 1)

	do := func(method, path string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/v1/paired-measurements"))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost, "/api/v1/paired-measurements"))

	// The exhausted write budget does not block reads.
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/v1/paired-measurements"))
}

func TestRateLimitNeverLimitsHealth(t *testing.T) {
	r := rateLimitTestRouter(1, 1)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
