package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"timetable-ai/backend/config"
)

var (
	// ErrMissingAPIKey 未配置 API Key，启动时即失败
	ErrMissingAPIKey = errors.New("未配置 LLM API Key")
	// ErrEmptyChoices 模型未返回任何候选回复
	ErrEmptyChoices = errors.New("LLM 响应中无候选回复")
)

// Prompt 单轮用户消息：文本指令，可选内联图片（data URI）
type Prompt struct {
	Text         string
	ImageDataURI string
}

// Client OpenAI 兼容的 Chat Completion 客户端封装
// 单次同步调用，不流式、不重试
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
	detail    openai.ImageURLDetail
	logger    *zap.Logger
}

// NewClient 根据配置创建客户端
func NewClient(cfg *config.LLMConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:       openai.NewClientWithConfig(oc),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		detail:    imageDetail(cfg.ImageDetail),
		logger:    logger,
	}, nil
}

// Complete 发送一轮对话并返回第一个候选回复的文本
func (c *Client) Complete(ctx context.Context, p Prompt) (string, error) {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if p.ImageDataURI == "" {
		msg.Content = p.Text
	} else {
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: p.Text},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    p.ImageDataURI,
					Detail: c.detail,
				},
			},
		}
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  []openai.ChatCompletionMessage{msg},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("调用 LLM 失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyChoices
	}

	c.logger.Debug("LLM 调用完成",
		zap.String("model", resp.Model),
		zap.Bool("with_image", p.ImageDataURI != ""),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.Choices[0].FinishReason == openai.FinishReasonLength {
		c.logger.Warn("LLM 回复达到 max_tokens 被截断", zap.Int("max_tokens", c.maxTokens))
	}

	return resp.Choices[0].Message.Content, nil
}

func imageDetail(s string) openai.ImageURLDetail {
	switch s {
	case "low":
		return openai.ImageURLDetailLow
	case "high":
		return openai.ImageURLDetailHigh
	default:
		return openai.ImageURLDetailAuto
	}
}
