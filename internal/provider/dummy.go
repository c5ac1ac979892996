package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"gemini-proxy/internal/gentypes"
)

// onePixelPNG 是一张 1x1 的透明 PNG，DummyProvider 用它模拟图片生成。
const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

// DummyProvider 不访问网络，直接回显提示词，用于本地调试。
type DummyProvider struct {
	Prefix string
}

func NewDummyProvider(prefix string) *DummyProvider {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy response:"
	}
	return &DummyProvider{Prefix: prefix}
}

func (d *DummyProvider) GenerateContent(_ context.Context, prompt string, inline *gentypes.InlinePayload) (*Completion, error) {
	text := fmt.Sprintf("%s %s", d.Prefix, prompt)
	if inline != nil {
		text = fmt.Sprintf("%s [%s, %d bytes]", text, inline.MIMEType, len(inline.Data))
	}
	return &Completion{Text: text}, nil
}

func (d *DummyProvider) GenerateImage(_ context.Context, prompt string) (*Completion, error) {
	data, err := base64.StdEncoding.DecodeString(onePixelPNG)
	if err != nil {
		return nil, err
	}
	return &Completion{
		Text:   fmt.Sprintf("%s image for %s", d.Prefix, prompt),
		Inline: []gentypes.InlinePayload{{Data: data, MIMEType: "image/png"}},
	}, nil
}

func (d *DummyProvider) Chat(_ context.Context, history []gentypes.ChatMessage, prompt string) (*Completion, error) {
	return &Completion{Text: fmt.Sprintf("%s %s (turn %d)", d.Prefix, prompt, len(history)/2+1)}, nil
}

// ChatStream 按单词切分回显内容，模拟流式输出。
func (d *DummyProvider) ChatStream(ctx context.Context, history []gentypes.ChatMessage, prompt string, onChunk ChunkFunc) (*Completion, error) {
	full, _ := d.Chat(ctx, history, prompt)
	words := strings.SplitAfter(full.Text, " ")
	for _, w := range words {
		if w == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if onChunk != nil {
			if err := onChunk(w); err != nil {
				return nil, err
			}
		}
	}
	return full, nil
}

func (d *DummyProvider) Close() error { return nil }

var _ Provider = (*DummyProvider)(nil)
