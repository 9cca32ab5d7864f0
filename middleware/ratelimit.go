package middleware

import (
	"net/http"
	"sync"
	"time"

	"projtrack/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// minIdle is the shortest time a client's bucket is kept after its last
// request.
const minIdle = time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than a full refill are dropped, since a new bucket starts full anyway.
type RateLimiter struct {
	limiters  map[string]*clientLimiter
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(rateLimit rate.Limit, burst int) *RateLimiter {
	idle := minIdle
	if rateLimit > 0 {
		refill := time.Duration(float64(burst) / float64(rateLimit) * float64(time.Second))
		idle = max(idle, refill)
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rateLimit,
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idle {
		rl.sweep(now)
	}
	cl, exists := rl.limiters[ip]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// sweep drops idle buckets. The caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for ip, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) >= rl.idle {
			delete(rl.limiters, ip)
		}
	}
	rl.lastSweep = now
}

// Len reports how many client buckets are held.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// RateLimitMiddleware allows requestsPerMinute per client IP with the given
// burst. A non-positive requestsPerMinute disables the limit.
func RateLimitMiddleware(requestsPerMinute, burst int) gin.HandlerFunc {
	if requestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := NewRateLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = c.RemoteIP()
		}
		if !limiter.getLimiter(ip).Allow() {
			response.HTTPError(c, http.StatusTooManyRequests, "rate limit exceeded", response.TooManyRequests)
			return
		}
		c.Next()
	}
}
