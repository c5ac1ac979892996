package gentypes

import (
	"encoding/base64"
)

// InlinePayload 是直接嵌入到模型请求中的文件内容。
// Data 以 JSON 编码时会变成 base64 文本，与提供方的 inlineData 结构一致。
type InlinePayload struct {
	Data     []byte `json:"data"`
	MIMEType string `json:"mimeType"`
}

// Encoded 返回 base64 编码后的内容。
func (p InlinePayload) Encoded() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// DataURL 把内容编码为可在前端直接显示的 data URL。
func (p InlinePayload) DataURL() string {
	mimeType := p.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + p.Encoded()
}
