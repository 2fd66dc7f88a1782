package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsUpToMax(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 5, Window: time.Minute})
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("test-ip"), "request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow("test-ip"))
}

func TestRateLimiter_DifferentKeysIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	defer rl.Stop()

	rl.Allow("ip-a")
	rl.Allow("ip-a")

	assert.False(t, rl.Allow("ip-a"))
	assert.True(t, rl.Allow("ip-b"))
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 1, Window: 50 * time.Millisecond})
	defer rl.Stop()

	assert.True(t, rl.Allow("k"))
	assert.False(t, rl.Allow("k"))
	time.Sleep(80 * time.Millisecond)
	assert.True(t, rl.Allow("k"))
}

func TestRateLimiter_HandlerReturns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	defer rl.Stop()

	r := gin.New()
	r.POST("/login", rl.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "error")
}

func TestRateLimiter_StopEndsCleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 1, Window: time.Minute})

	rl.Stop()
	select {
	case <-rl.done:
	default:
		t.Fatal("cleanup goroutine still running after Stop")
	}
	assert.NotPanics(t, rl.Stop)
	// 停止后限流本身仍然可用
	assert.True(t, rl.Allow("k"))
}
