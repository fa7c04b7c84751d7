package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitMiddleware applies fixed-window rate limits backed by redis.
type RateLimitMiddleware struct {
	client *redis.Client
}

func NewRateLimitMiddleware(client *redis.Client) *RateLimitMiddleware {
	return &RateLimitMiddleware{client: client}
}

// PerUser limits an authenticated route to limit requests per window,
// keyed on the user_id set by the auth middleware.
func (rm *RateLimitMiddleware) PerUser(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		key := fmt.Sprintf("rate_limit:%v:%s", userID, c.Request.URL.Path)
		rm.check(c, key, limit, window)
	}
}

// PerIP limits a public route to limit requests per window per client IP.
func (rm *RateLimitMiddleware) PerIP(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit_ip:%s:%s", c.ClientIP(), c.Request.URL.Path)
		rm.check(c, key, limit, window)
	}
}

func (rm *RateLimitMiddleware) check(c *gin.Context, key string, limit int, window time.Duration) {
	ctx := c.Request.Context()

	count, err := rm.client.Incr(ctx, key).Result()
	if err != nil {
		// Redis being down shouldn't take the write path with it.
		c.Next()
		return
	}
	if count == 1 {
		rm.client.Expire(ctx, key, window)
	}

	if count > int64(limit) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "Rate limit exceeded",
			"message": fmt.Sprintf("Too many requests. Limit: %d per %v", limit, window),
		})
		c.Abort()
		return
	}

	c.Next()
}
