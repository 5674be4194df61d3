package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-review/internal/clock"
	"github.com/stemsi/exstem-review/internal/response"
)

// visitorTTL is how long an idle IP keeps its bucket.
const visitorTTL = 3 * time.Minute

// RateLimiter is a per-IP token bucket: rate tokens, refilled in full every interval.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	interval time.Duration
	clock    clock.Clock
	stop     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens   int
	lastSeen time.Time
	refilled time.Time
}

// NewRateLimiter creates a RateLimiter (e.g., 10 requests per minute) on the wall clock.
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	return NewRateLimiterWithClock(rate, interval, clock.Real())
}

// NewRateLimiterWithClock creates a RateLimiter driven by clk. Close stops
// its cleanup goroutine.
func NewRateLimiterWithClock(rate int, interval time.Duration, clk clock.Clock) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		interval: interval,
		clock:    clk,
		stop:     make(chan struct{}),
	}
	go rl.janitor()
	return rl
}

// Close stops the cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := rl.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second)/time.Second)))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

// allow takes a token for ip, or reports how long until the next refill.
func (rl *RateLimiter) allow(ip string) (bool, time.Duration) {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{tokens: rl.rate, refilled: now}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	if periods := int(now.Sub(v.refilled) / rl.interval); periods > 0 {
		v.tokens = min(v.tokens+periods*rl.rate, rl.rate)
		v.refilled = v.refilled.Add(time.Duration(periods) * rl.interval)
	}

	if v.tokens <= 0 {
		return false, v.refilled.Add(rl.interval).Sub(now)
	}
	v.tokens--
	return true, 0
}

func (rl *RateLimiter) janitor() {
	ticker := rl.clock.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C():
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	now := rl.clock.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, ip)
		}
	}
}
