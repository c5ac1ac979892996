package gentypes

import "errors"

// GenerationData 是成功响应中 data 字段的内容。
type GenerationData struct {
	SessionID string `json:"sessionId,omitempty"`
	Prompt    string `json:"prompt"`
	FileName  string `json:"fileName,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
	Response  string `json:"response"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// Envelope 是所有接口统一的响应结构。
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// OK 包装成功结果。
func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// Fail 把错误转换为失败响应。未分类的错误统一报告为内部错误。
func Fail(err error) Envelope {
	var genErr *Error
	if errors.As(err, &genErr) {
		env := Envelope{Success: false, Error: genErr.Message}
		if genErr.Detail != nil {
			env.Details = genErr.Detail.Error()
		}
		return env
	}
	env := Envelope{Success: false, Error: "Internal server error"}
	if err != nil {
		env.Details = err.Error()
	}
	return env
}
