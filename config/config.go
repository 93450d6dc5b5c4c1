package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Export    ExportConfig    `mapstructure:"export"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	CORS           CORSConfig    `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// LLMConfig 大模型（OpenAI 兼容接口）配置
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"` // 为空时使用 OpenAI 官方地址
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	ImageDetail string        `mapstructure:"image_detail"` // auto / low / high
}

// StoreConfig 课表内存存储配置
type StoreConfig struct {
	Capacity int `mapstructure:"capacity"` // 0 表示不限
}

// RedisConfig Redis 配置（仅用于上传限流，未启用时不限流）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig 上传接口限流配置
type RateLimitConfig struct {
	UploadLimit  int           `mapstructure:"upload_limit"`
	UploadWindow time.Duration `mapstructure:"upload_window"`
}

// ExportConfig 课表导出配置
type ExportConfig struct {
	Timezone string `mapstructure:"timezone"` // ICS 事件时间所在时区（IANA 名称）
	Weeks    int    `mapstructure:"weeks"`    // ICS 周重复次数
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.max_upload_bytes", 20<<20)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s") // 需覆盖一次完整的 LLM 调用
	v.SetDefault("server.cors.allow_origins", []string{"*"})

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.timeout", "90s")
	v.SetDefault("llm.image_detail", "auto")

	v.SetDefault("store.capacity", 0)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.upload_limit", 10)
	v.SetDefault("rate_limit.upload_window", "1m")

	v.SetDefault("export.timezone", "UTC")
	v.SetDefault("export.weeks", 16)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("TIMETABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 兼容 OpenAI 生态通用的环境变量名
	if err := v.BindEnv("llm.api_key", "TIMETABLE_LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("绑定环境变量失败: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("配置校验失败: llm.api_key 不能为空（可通过 OPENAI_API_KEY 设置）")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("配置校验失败: llm.model 不能为空")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("配置校验失败: llm.max_tokens 必须大于 0")
	}
	switch c.LLM.ImageDetail {
	case "auto", "low", "high":
	default:
		return fmt.Errorf("配置校验失败: llm.image_detail 必须为 auto/low/high")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("配置校验失败: server.max_upload_bytes 必须大于 0")
	}
	if c.Store.Capacity < 0 {
		return fmt.Errorf("配置校验失败: store.capacity 不能为负数")
	}
	if c.Redis.Enabled && (c.RateLimit.UploadLimit <= 0 || c.RateLimit.UploadWindow <= 0) {
		return fmt.Errorf("配置校验失败: 启用 Redis 限流时 rate_limit.upload_limit 与 upload_window 必须大于 0")
	}
	if c.Export.Weeks <= 0 {
		return fmt.Errorf("配置校验失败: export.weeks 必须大于 0")
	}
	if _, err := time.LoadLocation(c.Export.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: export.timezone 无效: %w", err)
	}
	return nil
}
