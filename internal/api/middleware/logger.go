package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// healthPath 健康检查路径，探针请求只在 debug 级别记录
const healthPath = "/healthz"

// Logger 访问日志中间件
// 字段以路由模板（如 /timetable/:id）而非原始路径记录，便于按接口聚合
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		lvl, msg := accessLevel(c.Request.URL.Path, status)
		ce := logger.Check(lvl, msg)
		if ce == nil {
			return
		}

		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("route", routeOf(c)),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int64("bytes_in", c.Request.ContentLength),
			zap.Int("bytes_out", c.Writer.Size()),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, zap.Strings("errors", errs.Errors()))
		}
		ce.Write(fields...)
	}
}

// accessLevel 按状态码确定日志级别
func accessLevel(path string, status int) (zapcore.Level, string) {
	switch {
	case status >= 500:
		return zapcore.ErrorLevel, "请求处理失败"
	case status >= 400:
		return zapcore.WarnLevel, "客户端错误"
	case path == healthPath:
		return zapcore.DebugLevel, "健康检查"
	default:
		return zapcore.InfoLevel, "请求完成"
	}
}

// routeOf 返回匹配的路由模板，未匹配路由时退回原始路径
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}
