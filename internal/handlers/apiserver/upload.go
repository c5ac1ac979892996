package apiserver

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"gemini-proxy/internal/gentypes"
	"gemini-proxy/internal/media"

	"go.uber.org/zap"
)

const (
	defaultMaxMemory = 32 << 20 // 32 MB default max memory for multipart forms
	formOverhead     = 1 << 20  // 为 prompt 等普通字段和 multipart 边界预留的空间
	fileField        = "file"
	promptField      = "prompt"
)

// receiveUpload 解析 multipart 请求，在文件到达调度器之前检查大小和类型，
// 并把通过检查的文件交给 FileStore 暂存。
// 请求中没有文件时返回 nil 文件和 nil 错误，由调度器报告缺少文件。
func (h *GenerationHandler) receiveUpload(ctx context.Context, w http.ResponseWriter, r *http.Request, profile gentypes.ModalityProfile) (*gentypes.UploadedFile, string, error) {
	maxUploadSize := h.uploadCfg.MaxFileSizeBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+formOverhead)

	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		switch {
		case isBodyTooLarge(err):
			return nil, "", h.tooLarge()
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			// 与表单上传缺少文件的情况一样处理
			return nil, r.FormValue(promptField), nil
		default:
			return nil, "", gentypes.NewValidationError(fmt.Sprintf("Invalid multipart form: %v", err))
		}
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	prompt := r.FormValue(promptField)

	file, header, err := r.FormFile(fileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, prompt, nil
		}
		return nil, "", gentypes.NewValidationError(fmt.Sprintf("Invalid file field: %v", err))
	}
	defer file.Close()

	declared := media.DeclaredOrResolved(header.Header.Get("Content-Type"), header.Filename)
	h.logger.Info("收到上传文件",
		zap.String("modality", string(profile.Modality)),
		zap.String("name", header.Filename),
		zap.Int64("size", header.Size),
		zap.String("type", declared))

	if !profile.Allows(declared) {
		return nil, "", gentypes.NewUnsupportedMediaError(profile.InvalidTypeMessage())
	}
	if header.Size > maxUploadSize {
		return nil, "", h.tooLarge()
	}

	uploaded, err := h.files.Store(ctx, file, header.Size, originalName(header), declared)
	if err != nil {
		return nil, "", err
	}
	return uploaded, prompt, nil
}

func (h *GenerationHandler) tooLarge() error {
	return gentypes.NewUploadTooLargeError(fmt.Sprintf("File too large. Maximum size is %dMB.", h.uploadCfg.MaxFileSizeMB))
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return errors.Is(err, multipart.ErrMessageTooLarge) || strings.Contains(err.Error(), "request body too large")
}

// originalName 去掉客户端可能携带的目录部分。
func originalName(header *multipart.FileHeader) string {
	name := header.Filename
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}
