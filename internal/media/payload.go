package media

import (
	"errors"
	"fmt"
	"os"

	"gemini-proxy/internal/gentypes"
)

// BuildInlinePayload 读取暂存文件的全部内容，生成可以直接放入模型请求的内联数据。
// 所有文件类模态都通过这里组装请求内容。
func BuildInlinePayload(file *gentypes.UploadedFile) (gentypes.InlinePayload, error) {
	if file == nil {
		return gentypes.InlinePayload{}, gentypes.NewIOError("Failed to read uploaded file", errors.New("no file"))
	}

	data, err := os.ReadFile(file.Path)
	if err != nil {
		return gentypes.InlinePayload{}, gentypes.NewIOError("Failed to read uploaded file", fmt.Errorf("read %s: %w", file.StoredName, err))
	}

	mimeType := gentypes.NormalizeMIME(file.DeclaredMIMEType)
	if mimeType == "" {
		mimeType = Resolve(file.Path)
	}

	return gentypes.InlinePayload{Data: data, MIMEType: mimeType}, nil
}
