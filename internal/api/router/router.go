package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timetable-ai/backend/config"
	"timetable-ai/backend/internal/api/handler"
	"timetable-ai/backend/internal/api/middleware"
	"timetable-ai/backend/internal/dto"
	"timetable-ai/backend/pkg/response"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时上传接口不限流
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/healthz", func(c *gin.Context) {
		response.OK(c, dto.HealthResponse{Status: "ok"})
	})

	// ── 上传（限流 + 请求体大小限制） ──
	// multipart 边界与表单头会占用少量额外字节
	r.POST("/upload",
		middleware.RateLimit(limiter, cfg.RateLimit.UploadLimit, cfg.RateLimit.UploadWindow),
		middleware.BodyLimit(cfg.Server.MaxUploadBytes+multipartOverhead),
		h.Timetable.Upload,
	)

	// ── 查询 ──
	r.GET("/timetable/:id", h.Timetable.GetTimetable)
	r.GET("/timetables", h.Timetable.ListTimetables)

	// ── 导出 ──
	r.GET("/timetable/:id/export", h.Export.ExportTimetable)

	return r
}

const multipartOverhead = 64 << 10
