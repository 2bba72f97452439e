package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Zaad1704/HNV1-sub001/internal/config"
	"github.com/Zaad1704/HNV1-sub001/internal/logger"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterIdleTTL         = 30 * time.Minute
)

// clientLimiter stores the token bucket of one organization.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware throttles expensive endpoints per organization.
type RateLimiterMiddleware struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
}

// NewRateLimiterMiddleware creates a limiter allowing perMinute requests per
// organization with the given burst. Idle entries are dropped until ctx ends.
func NewRateLimiterMiddleware(ctx context.Context, perMinute, burst int) *RateLimiterMiddleware {
	if burst < 1 {
		burst = 1
	}
	rm := &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
	}
	go rm.cleanupClients(ctx)
	return rm
}

// NewExportRateLimiter builds the limiter of the export endpoints from cfg.
func NewExportRateLimiter(ctx context.Context, cfg *config.Config) *RateLimiterMiddleware {
	return NewRateLimiterMiddleware(ctx, cfg.ExportRateLimitPerMin, cfg.ExportRateLimitBurst)
}

// clientKey prefers the authenticated organization over the client IP.
func clientKey(c *gin.Context) string {
	if org, ok := OrganizationID(c); ok {
		return "org:" + org.Hex()
	}
	return "ip:" + c.ClientIP()
}

func (rm *RateLimiterMiddleware) getClientLimiter(key string) *rate.Limiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	cl, ok := rm.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rm.limit, rm.burst)}
		rm.clients[key] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

func (rm *RateLimiterMiddleware) cleanupClients(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rm.prune(time.Now().Add(-limiterIdleTTL))
		}
	}
}

// prune drops limiters not used since cutoff and returns how many were removed.
func (rm *RateLimiterMiddleware) prune(cutoff time.Time) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for key, cl := range rm.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(rm.clients, key)
			count++
		}
	}
	if count > 0 {
		logger.L().WithField("removed", count).Debug("Rate limiter cleanup removed idle clients")
	}
	return count
}

// Limit creates the Gin middleware handler. It must run after AuthMiddleware
// to key on the organization.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := clientKey(c)
		limiter := rm.getClientLimiter(key)

		r := limiter.Reserve()
		if !r.OK() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Rate limit exceeded"})
			return
		}
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			logger.WithContext(c.Request.Context()).WithField("client", key).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Rate limit exceeded"})
			return
		}

		c.Next()
	}
}
