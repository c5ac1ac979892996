// Package provider 封装对外部生成式 AI 服务的调用。
// 调度器只依赖 Provider 接口，客户端在启动时显式构造并注入。
package provider

import (
	"context"
	"fmt"
	"strings"

	"gemini-proxy/internal/config"
	"gemini-proxy/internal/gentypes"

	"go.uber.org/zap"
)

// Completion 是从提供方响应中提取出的结果。
type Completion struct {
	Text   string                   // 所有文本片段拼接后的内容，可能为空
	Inline []gentypes.InlinePayload // 响应中携带的内联二进制数据 (例如生成的图片)
}

// FirstInline 返回第一个内联数据。
func (c *Completion) FirstInline() (gentypes.InlinePayload, bool) {
	if c == nil || len(c.Inline) == 0 {
		return gentypes.InlinePayload{}, false
	}
	return c.Inline[0], true
}

// ChunkFunc 接收流式响应中的每个文本片段，返回错误会中止流。
type ChunkFunc func(text string) error

// Provider 定义了调度器需要的模型能力。
type Provider interface {
	// GenerateContent 发送提示词以及可选的内联文件。
	GenerateContent(ctx context.Context, prompt string, inline *gentypes.InlinePayload) (*Completion, error)
	// GenerateImage 调用图片模型，结果中的图片放在 Completion.Inline。
	GenerateImage(ctx context.Context, prompt string) (*Completion, error)
	// Chat 携带历史对话发送一条消息。
	Chat(ctx context.Context, history []gentypes.ChatMessage, prompt string) (*Completion, error)
	// ChatStream 与 Chat 相同，但逐段回调文本。返回的 Completion 包含完整文本。
	ChatStream(ctx context.Context, history []gentypes.ChatMessage, prompt string, onChunk ChunkFunc) (*Completion, error)
	Close() error
}

// New 根据配置创建 Provider。
func New(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini", "google", "":
		return NewGeminiProvider(ctx, cfg, logger)
	case "dummy":
		return NewDummyProvider(""), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
