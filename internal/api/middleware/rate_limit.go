package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"timetable-ai/backend/pkg/response"
)

// RateLimiter 限流存储接口（由 pkg/redis.Client 实现）
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 按客户端 IP 与路由的滑动窗口限流
// 被拒绝时返回 429 并附 Retry-After（秒，取整个窗口）
// limiter 为 nil 时不限流；存储出错时记录错误并放行，上传不因 Redis 故障中断
func RateLimit(limiter RateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(window.Seconds())))
	limitHeader := strconv.Itoa(limit)

	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := "rate_limit:" + c.ClientIP() + ":" + routeOf(c)
		allowed, err := limiter.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			_ = c.Error(err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", limitHeader)
		if !allowed {
			c.Header("Retry-After", retryAfter)
			response.TooManyRequests(c, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
