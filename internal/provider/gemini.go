package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gemini-proxy/internal/config"
	"gemini-proxy/internal/gentypes"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiProvider 通过 generative-ai-go 调用 Google Gemini。
type GeminiProvider struct {
	client *genai.Client
	cfg    config.GeminiConfig
	logger *zap.Logger
}

// NewGeminiProvider 创建客户端。API key 缺失时直接返回错误，而不是等到第一次调用才失败。
func NewGeminiProvider(ctx context.Context, cfg config.GeminiConfig, logger *zap.Logger) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing GEMINI_API_KEY")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiProvider{client: client, cfg: cfg, logger: logger}, nil
}

func (g *GeminiProvider) GenerateContent(ctx context.Context, prompt string, inline *gentypes.InlinePayload) (*Completion, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	model := g.client.GenerativeModel(g.cfg.Model)
	parts := []genai.Part{genai.Text(prompt)}
	if inline != nil {
		parts = append(parts, genai.Blob{MIMEType: inline.MIMEType, Data: inline.Data})
	}

	g.logger.Debug("调用 Gemini 生成内容",
		zap.String("model", g.cfg.Model),
		zap.Bool("inline", inline != nil))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, wrapAPIError("gemini generate", err)
	}
	return extractCompletion(resp), nil
}

func (g *GeminiProvider) GenerateImage(ctx context.Context, prompt string) (*Completion, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	model := g.client.GenerativeModel(g.cfg.ImageModel)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, wrapAPIError("gemini image", err)
	}
	return extractCompletion(resp), nil
}

func (g *GeminiProvider) Chat(ctx context.Context, history []gentypes.ChatMessage, prompt string) (*Completion, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	cs := g.chatModel().StartChat()
	cs.History = toContents(history)
	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return nil, wrapAPIError("gemini chat", err)
	}
	return extractCompletion(resp), nil
}

func (g *GeminiProvider) ChatStream(ctx context.Context, history []gentypes.ChatMessage, prompt string, onChunk ChunkFunc) (*Completion, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	cs := g.chatModel().StartChat()
	cs.History = toContents(history)
	iter := cs.SendMessageStream(ctx, genai.Text(prompt))

	result := &Completion{}
	var sb strings.Builder
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, wrapAPIError("gemini chat stream", err)
		}
		chunk := extractCompletion(resp)
		result.Inline = append(result.Inline, chunk.Inline...)
		if chunk.Text == "" {
			continue
		}
		sb.WriteString(chunk.Text)
		if onChunk != nil {
			if err := onChunk(chunk.Text); err != nil {
				return nil, err
			}
		}
	}
	result.Text = sb.String()
	return result, nil
}

func (g *GeminiProvider) Close() error {
	return g.client.Close()
}

func (g *GeminiProvider) chatModel() *genai.GenerativeModel {
	model := g.client.GenerativeModel(g.cfg.Model)
	if g.cfg.Temperature > 0 {
		model.SetTemperature(g.cfg.Temperature)
	}
	if g.cfg.TopP > 0 {
		model.SetTopP(g.cfg.TopP)
	}
	if g.cfg.TopK > 0 {
		model.SetTopK(g.cfg.TopK)
	}
	return model
}

// withTimeout 只在配置了 GEMINI.TIMEOUT 时限制调用时长。
func (g *GeminiProvider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, g.cfg.Timeout)
	}
	return ctx, func() {}
}

// wrapAPIError 在错误来自 Gemini REST 接口时带上状态码，方便在 details 里定位问题。
func wrapAPIError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: status %d: %w", op, apiErr.Code, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// extractCompletion 从第一个候选结果中提取文本和内联数据。
// 候选为空、内容缺失都返回空结果，由调用方决定兜底文案。
func extractCompletion(resp *genai.GenerateContentResponse) *Completion {
	out := &Completion{}
	if resp == nil || len(resp.Candidates) == 0 {
		return out
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return out
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			sb.WriteString(string(p))
		case genai.Blob:
			out.Inline = append(out.Inline, gentypes.InlinePayload{Data: p.Data, MIMEType: p.MIMEType})
		}
	}
	out.Text = sb.String()
	return out
}

// toContents 把历史转换为 genai 的 Content。
// 历史被裁剪后可能以 model 消息开头，而接口要求第一条必须是 user，这里跳过开头的 model 消息。
func toContents(history []gentypes.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		if len(contents) == 0 && m.Role != gentypes.UserRole {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  string(m.Role),
			Parts: []genai.Part{genai.Text(m.Text)},
		})
	}
	return contents
}

var _ Provider = (*GeminiProvider)(nil)
