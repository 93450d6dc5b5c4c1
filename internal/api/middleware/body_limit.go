package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"timetable-ai/backend/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// maxBytes: 允许的最大请求体字节数；超限时读取请求体返回 *http.MaxBytesError，
// 由 Handler 映射为 413
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "上传文件过大")
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
