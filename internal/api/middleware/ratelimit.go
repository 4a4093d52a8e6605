package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"pakolx/market/internal/config"
	"pakolx/market/internal/models"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterIdleTimeout     = 30 * time.Minute
)

// RuleSource provides per-route bucket overrides.
type RuleSource interface {
	GetRateLimitRule(ctx context.Context, route string) *models.RateLimitRule
}

// clientLimiter stores the token bucket of one client (and route, when overridden).
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware keeps in-memory token buckets per client. Guests are
// keyed by IP, authenticated users by user id.
type RateLimiterMiddleware struct {
	clients   map[string]*clientLimiter
	mu        sync.Mutex
	cfg       *config.Config
	rules     RuleSource
	jwtSecret string
	now       func() time.Time
}

// NewRateLimiterMiddleware creates the limiter. The cleanup goroutine stops
// when ctx is done.
func NewRateLimiterMiddleware(ctx context.Context, cfg *config.Config, rules RuleSource) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients:   make(map[string]*clientLimiter),
		cfg:       cfg,
		rules:     rules,
		jwtSecret: cfg.JwtSecret,
		now:       time.Now,
	}
	go rm.cleanupLoop(ctx)
	return rm
}

func (rm *RateLimiterMiddleware) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rm.cleanup(limiterIdleTimeout); n > 0 {
				log.Debugf("Rate limiter cleanup removed %d idle client entries", n)
			}
		}
	}
}

// cleanup drops buckets idle for longer than idle and returns how many were removed.
func (rm *RateLimiterMiddleware) cleanup(idle time.Duration) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	now := rm.now()
	for id, client := range rm.clients {
		if now.Sub(client.lastSeen) > idle {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

// Size returns the number of tracked buckets.
func (rm *RateLimiterMiddleware) Size() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.clients)
}

func (rm *RateLimiterMiddleware) getClientLimiter(key string, bucket models.RateLimitConfig) *rate.Limiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	cl, exists := rm.clients[key]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(bucket.TokenRefillRate), bucket.BucketSize)}
		rm.clients[key] = cl
	}
	cl.lastSeen = rm.now()
	return cl.limiter
}

// bucketFor resolves the client key and bucket parameters of a request.
func (rm *RateLimiterMiddleware) bucketFor(c *gin.Context) (string, models.RateLimitConfig) {
	route := c.FullPath()
	var rule *models.RateLimitRule
	if rm.rules != nil && route != "" {
		rule = rm.rules.GetRateLimitRule(c.Request.Context(), route)
	}

	var key string
	var bucket models.RateLimitConfig
	if claims, _, _ := bearerClaims(c, rm.jwtSecret); claims != nil {
		key = "user:" + claims.UserID
		bucket = models.RateLimitConfig{BucketSize: rm.cfg.RateLimitUserBucketSize, TokenRefillRate: rm.cfg.RateLimitUserRefillRate}
		if rule != nil && rule.User != nil {
			bucket = *rule.User
		}
	} else {
		key = "ip:" + c.ClientIP()
		bucket = models.RateLimitConfig{BucketSize: rm.cfg.RateLimitGuestBucketSize, TokenRefillRate: rm.cfg.RateLimitGuestRefillRate}
		if rule != nil && rule.Guest != nil {
			bucket = *rule.Guest
		}
	}

	// Overridden routes get a bucket of their own.
	if rule != nil {
		key += "|" + c.Request.Method + " " + route
	}
	return key, bucket
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, bucket := rm.bucketFor(c)
		if bucket.BucketSize <= 0 {
			c.Next()
			return
		}

		limiter := rm.getClientLimiter(key, bucket)
		if !limiter.Allow() {
			log.WithFields(log.Fields{"client": key, "route": c.FullPath()}).Warn("Rate limit exceeded")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
