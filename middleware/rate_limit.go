package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/simpleblog/utils"
)

const limiterIdle = 5 * time.Minute

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// IPRateLimiter hands out one token bucket per client IP and forgets idle ones.
type IPRateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rateLimiter
}

// NewIPRateLimiter allows perMinute requests per IP, with bursts of half that.
func NewIPRateLimiter(perMinute int) *IPRateLimiter {
	perMinute = max(perMinute, 1)
	return &IPRateLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    max(perMinute/2, 1),
		limiters: map[string]*rateLimiter{},
	}
}

// Allow reports whether the IP may proceed now.
func (l *IPRateLimiter) Allow(ip string) bool {
	return l.get(ip).Allow()
}

// Middleware rejects requests over the limit with 429.
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ip := ctx.ClientIP()
		if !l.Allow(ip) {
			utils.Sugar.Warnw("rate limit exceeded", "ip", ip, "path", ctx.Request.URL.Path)
			ctx.String(http.StatusTooManyRequests, "Too Many Requests")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func (l *IPRateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanupExpiredLocked()

	now := time.Now()
	if rl, ok := l.limiters[key]; ok {
		rl.expires = now.Add(limiterIdle)
		return rl.limiter
	}

	rl := &rateLimiter{
		limiter: rate.NewLimiter(l.limit, l.burst),
		expires: now.Add(limiterIdle),
	}
	l.limiters[key] = rl
	return rl.limiter
}

func (l *IPRateLimiter) cleanupExpiredLocked() {
	now := time.Now()
	for key, rl := range l.limiters {
		if now.After(rl.expires) {
			delete(l.limiters, key)
		}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
