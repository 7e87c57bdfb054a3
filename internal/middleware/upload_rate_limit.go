package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/catalogix/backend/internal/config"
)

// UploadRateLimit limits how many uploads a tenant may perform per day.
// The counter is keyed by tenant name and date so it resets at midnight.
// Redis failures never block an upload.
func UploadRateLimit(redisClient *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		// The multipart form is parsed once here and cached on the request,
		// so the handler's FormFile call still works.
		tenant := c.PostForm("tenant")
		if tenant == "" {
			c.Next()
			return
		}

		ctx := context.Background()
		today := time.Now().Format("2006-01-02")
		key := fmt.Sprintf("upload_limit:%s:%s", tenant, today)

		count, err := redisClient.Get(ctx, key).Int()
		if err == redis.Nil {
			now := time.Now()
			midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
			if err := redisClient.Set(ctx, key, 1, midnight.Sub(now)).Err(); err != nil {
				c.Next()
				return
			}
		} else if err != nil {
			c.Next()
			return
		} else if count >= cfg.UploadsPerDay {
			ttl, _ := redisClient.TTL(ctx, key).Result()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":               "upload_rate_limit_exceeded",
				"message":             "Too many uploads today. Please try again tomorrow.",
				"retry_after_hours":   int(ttl.Hours()),
				"uploads_today":       count,
				"max_uploads_per_day": cfg.UploadsPerDay,
			})
			c.Abort()
			return
		} else {
			if err := redisClient.Incr(ctx, key).Err(); err != nil {
				c.Next()
				return
			}
		}

		c.Next()
	}
}
