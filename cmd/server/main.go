package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"timetable-ai/backend/config"
	"timetable-ai/backend/internal/api/handler"
	"timetable-ai/backend/internal/api/middleware"
	"timetable-ai/backend/internal/api/router"
	"timetable-ai/backend/internal/repository"
	"timetable-ai/backend/internal/service"
	"timetable-ai/backend/pkg/llm"
	applogger "timetable-ai/backend/pkg/logger"
	"timetable-ai/backend/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml 或 ./config.yaml）")
	flag.Parse()

	// 1. 加载配置（缺少 LLM API Key 时直接失败）
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Int("store_capacity", cfg.Store.Capacity),
	)

	// 3. 初始化 LLM 客户端
	llmClient, err := llm.NewClient(&cfg.LLM, logger)
	if err != nil {
		logger.Fatal("LLM 客户端初始化失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：仅用于上传限流，连接失败时降级为不限流）
	var limiter middleware.RateLimiter
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，上传限流将不可用", zap.Error(err))
			rdb = nil
		} else {
			limiter = rdb
		}
	}

	// 5. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(cfg.Store.Capacity)
	svc := service.NewService(cfg, repo, llmClient, logger)
	h := handler.NewHandler(svc)

	// 6. 初始化路由
	engine := router.Setup(cfg, h, limiter, logger)

	// 7. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 8. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
