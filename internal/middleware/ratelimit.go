package middleware

import (
	"net/http" // HTTP status codes
	"strconv"  // Window formatting
	"time"     // Window length

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// RateLimit allows max requests per window for each client IP, counted in Redis
// fixed windows under name. Redis failures let the request through.
func RateLimit(rdb *redis.Client, name string, max int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		slot := time.Now().UnixNano() / int64(window) // Current fixed window
		key := "ratelimit:" + name + ":" + c.ClientIP() + ":" + strconv.FormatInt(slot, 10)
		ctx := c.Request.Context()

		pipe := rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		if _, err := pipe.Exec(ctx); err != nil {
			logrus.WithFields(logrus.Fields{
				"limiter": name,
				"error":   err.Error(),
			}).Warn("Rate limiter unavailable")
			c.Next()
			return
		}
		if incr.Val() > max {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too_many_requests"})
			return
		}
		c.Next()
	}
}
