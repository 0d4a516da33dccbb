package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/bp-admin-api/config"
	"github.com/jwalitptl/bp-admin-api/pkg/httputil"
)

const ReasonRateLimited = "rate_limited"

// RateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than the expiry are dropped.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiters: cache.New(10*time.Minute, 5*time.Minute),
		rate:     rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.limiters.Get(key); ok {
		rl.limiters.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters.SetDefault(key, l)
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.Response{
				Success: false,
				Error: &httputil.Error{
					Code:    http.StatusTooManyRequests,
					Reason:  ReasonRateLimited,
					Message: "rate limit exceeded",
				},
			})
			return
		}
		c.Next()
	}
}
