package gentypes

import "strings"

// Modality 表示输入媒介类型。
type Modality string

const (
	TextModality     Modality = "text"
	ImageModality    Modality = "image"
	DocumentModality Modality = "document"
	AudioModality    Modality = "audio"
)

// ModalityProfile 描述一种文件模态的处理参数，文件类请求共用同一条处理流水线。
type ModalityProfile struct {
	Modality           Modality
	AllowedMIMETypes   []string
	AllowedLabels      string // 错误信息中展示的扩展名列表
	DefaultPrompt      string
	MissingFileMessage string
	FailureMessage     string
}

var modalityProfiles = map[Modality]ModalityProfile{
	ImageModality: {
		Modality:           ImageModality,
		AllowedMIMETypes:   []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		AllowedLabels:      "jpeg, png, gif, webp",
		DefaultPrompt:      "Describe this image in detail.",
		MissingFileMessage: "Image file is required",
		FailureMessage:     "Failed to process image",
	},
	DocumentModality: {
		Modality:           DocumentModality,
		AllowedMIMETypes:   []string{"application/pdf", "text/plain", "text/csv", "text/html"},
		AllowedLabels:      "pdf, txt, csv, html",
		DefaultPrompt:      "Summarize the content of this document.",
		MissingFileMessage: "Document file is required",
		FailureMessage:     "Failed to process document",
	},
	AudioModality: {
		Modality:           AudioModality,
		AllowedMIMETypes:   []string{"audio/mp3", "audio/mpeg", "audio/wav", "audio/webm", "audio/ogg", "audio/flac"},
		AllowedLabels:      "mp3, wav, webm, ogg, flac",
		DefaultPrompt:      "Transcribe and describe this audio content.",
		MissingFileMessage: "Audio file is required",
		FailureMessage:     "Failed to process audio",
	},
}

// ProfileFor 返回文件模态的处理参数。text 模态没有文件参数，返回 false。
func ProfileFor(m Modality) (ModalityProfile, bool) {
	p, ok := modalityProfiles[m]
	return p, ok
}

// Allows 判断 MIME 类型是否在允许列表中。参数会忽略大小写和 ";charset=..." 之类的参数部分。
func (p ModalityProfile) Allows(mimeType string) bool {
	mt := NormalizeMIME(mimeType)
	for _, allowed := range p.AllowedMIMETypes {
		if mt == allowed {
			return true
		}
	}
	return false
}

// InvalidTypeMessage 是类型不被允许时返回给用户的信息。
func (p ModalityProfile) InvalidTypeMessage() string {
	return "Invalid file type. Allowed: " + p.AllowedLabels
}

// NormalizeMIME 去掉参数并转为小写，例如 "Text/Plain; charset=utf-8" -> "text/plain"。
func NormalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
