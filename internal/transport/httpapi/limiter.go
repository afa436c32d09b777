package httpapi

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

// Limiter applies a global token bucket and one bucket per client IP.
type Limiter struct {
	global    *rate.Limiter
	perClient rate.Limit
	burst     int
	clients   *xsync.MapOf[string, *clientLimiter]
}

type clientLimiter struct {
	limiter *rate.Limiter
	// unix nanoseconds
	lastSeen atomic.Int64
}

// NewLimiter allows rps requests per second overall and per client, with
// the given burst. A non-positive rps disables limiting.
func NewLimiter(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		global:    rate.NewLimiter(rate.Limit(rps), burst*2),
		perClient: rate.Limit(rps),
		burst:     burst,
		clients:   xsync.NewMapOf[string, *clientLimiter](),
	}
}

func (l *Limiter) Allow(client string) bool {
	if l == nil {
		return true
	}
	if !l.global.Allow() {
		return false
	}
	c, _ := l.clients.LoadOrCompute(client, func() *clientLimiter {
		return &clientLimiter{limiter: rate.NewLimiter(l.perClient, l.burst)}
	})
	c.lastSeen.Store(time.Now().UnixNano())
	return c.limiter.Allow()
}

// Forget drops client buckets idle for longer than idle.
func (l *Limiter) Forget(idle time.Duration) int {
	if l == nil {
		return 0
	}
	cutoff := time.Now().Add(-idle).UnixNano()
	n := 0
	l.clients.Range(func(key string, c *clientLimiter) bool {
		if c.lastSeen.Load() < cutoff {
			l.clients.Delete(key)
			n++
		}
		return true
	})
	return n
}

func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
