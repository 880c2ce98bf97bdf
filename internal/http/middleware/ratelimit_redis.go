package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"task_manager/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter initializes a shared Redis client used by the middleware.
// Provide addr (host:port), password and db index. If addr is empty or the
// ping fails, limiters fall back to per-process counters.
func InitRedisRateLimiter(addr, password string, db int) {
	if addr == "" {
		return
	}
	redisClient = redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-process rate limiter", "addr", addr, "error", err)
		redisClient = nil
		return
	}
	logger.Info("redis rate limiter enabled", "addr", addr)
}

// RateLimit implements a fixed-window limiter per client IP using Redis
// INCR/EXPIRE. Keys: rl:<scope>:<window_seconds>:<ip>.
func RateLimit(scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	fallback := newMemoryLimiter(window)
	windowSecs := strconv.FormatInt(int64(window.Seconds()), 10)

	return func(c *gin.Context) {
		if maxRequests <= 0 {
			c.Next()
			return
		}

		ident := c.ClientIP()
		var val int64
		if redisClient != nil {
			key := "rl:" + scope + ":" + windowSecs + ":" + ident
			ctx := c.Request.Context()

			n, err := redisClient.Incr(ctx, key).Result()
			if err != nil {
				// on Redis error, fail-open (allow) but set header
				c.Header("X-RateLimit-Error", "redis-error")
				c.Next()
				return
			}
			if n == 1 {
				redisClient.Expire(ctx, key, window)
			}
			val = n
		} else {
			val = fallback.incr(ident, time.Now())
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(scope).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message":     "Too many requests",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(scope).Inc()
		c.Next()
	}
}
