package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"timetable-ai/backend/config"
)

// ServiceName 写入每条日志的服务名
const ServiceName = "timetable-ai"

// NewLogger 根据配置初始化 Zap 日志实例，输出到 stdout
//   - format=console: 本地调试，彩色级别
//   - format=json（默认）: 结构化输出，时间戳为 ISO8601
//
// Error 及以上级别附带调用栈
func NewLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder

	var enc zapcore.Encoder
	switch cfg.Format {
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json", "":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("无效的日志格式 %q（可选 json / console）", cfg.Format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), level)
	logger := zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	).With(zap.String("service", ServiceName))

	return logger, nil
}
