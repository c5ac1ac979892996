// internal/gentypes/file_info.go
package gentypes

// UploadedFile 描述一个暂存在本地的上传文件。
// Path 由 FileStore 持有，请求结束后（无论成功失败）必须被删除。
type UploadedFile struct {
	Path             string `json:"-"`          // 文件在临时目录中的完整路径
	StoredName       string `json:"storedName"` // 去重后的存储文件名
	OriginalName     string `json:"fileName"`   // 客户端上传时的原始文件名
	DeclaredMIMEType string `json:"mimeType"`   // 上传阶段声明的 MIME 类型，可能为空
	SizeBytes        int64  `json:"size"`       // 文件大小 (字节)
}
