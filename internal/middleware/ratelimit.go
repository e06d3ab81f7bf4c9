package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	name    string
	limit   rate.Limit
	burst   int
	metrics *metrics.Collector
	log     *zap.Logger

	mu       sync.Mutex
	visitors map[string]*visitor
}

func NewRateLimiter(name string, limit rate.Limit, burst int, m *metrics.Collector, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		name:     name,
		limit:    limit,
		burst:    burst,
		metrics:  m,
		log:      log,
		visitors: make(map[string]*visitor),
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if rl.limiterFor(ip).Allow() {
			c.Next()
			return
		}

		rl.metrics.RateLimited.WithLabelValues(rl.name).Inc()
		rl.log.Warn("rate limit exceeded",
			zap.String("limiter", rl.name),
			zap.String("client_ip", ip),
			zap.String("route", routeOf(c)),
		)
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"errors":  []string{"too many requests, slow down"},
		})
	}
}

// Sweep drops buckets idle for longer than idle.
func (rl *RateLimiter) Sweep(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	removed := 0
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is done.
func (rl *RateLimiter) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Sweep(3 * interval); n > 0 {
				rl.log.Debug("rate limiter swept", zap.String("limiter", rl.name), zap.Int("removed", n))
			}
		}
	}
}
