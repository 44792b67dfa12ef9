package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// SetRedisClient shares a Redis client with the rate limiters. A nil client
// makes them fail open.
func SetRedisClient(rdb *redis.Client) {
	redisClient = rdb
}

// RedisConfigured reports whether a Redis client was set.
func RedisConfigured() bool {
	return redisClient != nil
}

// RedisRateLimit implements a simple fixed-window rate limiter using Redis INCR/EXPIRE.
// key format: rl:<window_seconds>:<identifier>
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		allowed, _, ok := hit(c.Request.Context(), key, maxRequests, window)
		if !ok {
			// on Redis error, fail-open (allow) but set header
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if !allowed {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// UserRateLimit limits one action per user (not per IP). Requires JWT to
// run before it.
func UserRateLimit(scope string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		key := "rl:" + scope + ":" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		allowed, count, ok := hit(c.Request.Context(), key, max, window)
		if !ok {
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max64(0, int64(max)-count), 10))

		if !allowed {
			RLBlocked.WithLabelValues(scope).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       scope + " rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(scope).Inc()
		c.Next()
	}
}

// hit counts one request in the window. ok is false when Redis failed.
func hit(ctx context.Context, key string, max int, window time.Duration) (allowed bool, count int64, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, false
	}
	if val == 1 {
		// first increment, set expiry
		redisClient.Expire(ctx, key, window)
	}
	return val <= int64(max), val, true
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
