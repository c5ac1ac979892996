package media

import (
	"path/filepath"
	"strings"

	"gemini-proxy/internal/gentypes"
)

// OctetStream 是无法识别扩展名时使用的通用类型。
const OctetStream = "application/octet-stream"

// extensionTypes maps file extensions to the MIME types the provider accepts.
var extensionTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	// Documents
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".csv":  "text/csv",
	".html": "text/html",
	// Audio
	".mp3":  "audio/mp3",
	".wav":  "audio/wav",
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// Resolve 根据扩展名返回 MIME 类型，未知扩展名返回 application/octet-stream。
func Resolve(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mimeType, ok := extensionTypes[ext]; ok {
		return mimeType
	}
	return OctetStream
}

// DeclaredOrResolved 优先使用上传时声明的类型；声明为空或只是 octet-stream 时按文件名推断。
func DeclaredOrResolved(declared, fileName string) string {
	mt := gentypes.NormalizeMIME(declared)
	if mt == "" || mt == OctetStream {
		return Resolve(fileName)
	}
	return mt
}
