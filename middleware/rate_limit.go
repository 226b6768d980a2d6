package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	CleanupInterval   time.Duration
	TTL               time.Duration
}

type visitors struct {
	mu   sync.Mutex
	seen map[string]*visitor
	cfg  RateLimiterConfig
}

func (v *visitors) get(ip string) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	vis, exists := v.seen[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(v.cfg.RequestsPerSecond), v.cfg.Burst)
		v.seen[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	vis.lastSeen = time.Now()
	return vis.limiter
}

func (v *visitors) cleanup(ctx context.Context) {
	t := time.NewTicker(v.cfg.CleanupInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		v.mu.Lock()
		for ip, vis := range v.seen {
			if time.Since(vis.lastSeen) > v.cfg.TTL {
				delete(v.seen, ip)
			}
		}
		v.mu.Unlock()
	}
}

// RateLimiterMiddleware limits requests per client IP. Idle visitors are
// forgotten until ctx is done.
func RateLimiterMiddleware(ctx context.Context, config RateLimiterConfig) gin.HandlerFunc {
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}
	if config.TTL == 0 {
		config.TTL = 3 * time.Minute
	}
	if config.Burst == 0 {
		config.Burst = config.RequestsPerSecond
	}

	v := &visitors{seen: make(map[string]*visitor), cfg: config}
	go v.cleanup(ctx)

	return func(c *gin.Context) {
		if !v.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message":   "Too many requests",
				"requestID": c.GetString("requestID"),
			})
			return
		}

		c.Next()
	}
}
