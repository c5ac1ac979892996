// internal/gentypes/storage_service_iface.go
package gentypes

import (
	"context"
	"io"
	"time"
)

// FileStore 定义了上传文件暂存操作的接口。
// 将接口定义放在 gentypes 中以打破 storage 和 services 之间的循环依赖。
type FileStore interface {
	// Store 将读取器中的内容写入临时目录。
	// originalName 是原始文件名，用于保留扩展名。
	// declaredMIME 是上传阶段声明的 MIME 类型。
	Store(ctx context.Context, reader io.Reader, size int64, originalName string, declaredMIME string) (*UploadedFile, error)

	// Delete 删除暂存文件。重复调用是安全的，失败只记录日志，不返回错误。
	Delete(ctx context.Context, file *UploadedFile)
}

// StoredEntry 是临时目录中一个文件的概要信息，供运维命令使用。
type StoredEntry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}
