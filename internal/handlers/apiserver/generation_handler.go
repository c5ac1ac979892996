package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"gemini-proxy/internal/config"
	"gemini-proxy/internal/gentypes"
	"gemini-proxy/internal/middleware"
	"gemini-proxy/internal/services"

	"go.uber.org/zap"
)

// maxJSONBodyBytes 限制纯文本接口的请求体大小。
const maxJSONBodyBytes = 1 << 20

// GenerationHandler 封装了各模态生成请求的 HTTP 处理器方法。
type GenerationHandler struct {
	generationService services.GenerationService
	files             gentypes.FileStore
	uploadCfg         config.UploadConfig
	logger            *zap.Logger
}

// NewGenerationHandler 创建一个新的 GenerationHandler 实例。
func NewGenerationHandler(generationService services.GenerationService, files gentypes.FileStore, uploadCfg config.UploadConfig, logger *zap.Logger) *GenerationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationHandler{
		generationService: generationService,
		files:             files,
		uploadCfg:         uploadCfg,
		logger:            logger,
	}
}

// PromptRequest 是纯文本类接口的请求体。
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateTextHandler 处理 POST /api/generate-text。
func (h *GenerationHandler) GenerateTextHandler(w http.ResponseWriter, r *http.Request) {
	prompt, err := readPrompt(w, r)
	if err != nil {
		writeJSONError(w, err)
		return
	}

	data, err := h.generationService.GenerateText(detach(r), prompt)
	if err != nil {
		h.logFailure(r, err)
		writeJSONError(w, err)
		return
	}
	writeSuccess(w, data)
}

// GenerateImageHandler 处理 POST /api/generate-image。
func (h *GenerationHandler) GenerateImageHandler(w http.ResponseWriter, r *http.Request) {
	prompt, err := readPrompt(w, r)
	if err != nil {
		writeJSONError(w, err)
		return
	}

	data, err := h.generationService.GenerateImage(detach(r), prompt)
	if err != nil {
		h.logFailure(r, err)
		writeJSONError(w, err)
		return
	}
	writeSuccess(w, data)
}

// GenerateFromImageHandler 处理 POST /api/generate-from-image。
func (h *GenerationHandler) GenerateFromImageHandler(w http.ResponseWriter, r *http.Request) {
	h.handleFile(w, r, gentypes.ImageModality)
}

// GenerateFromDocumentHandler 处理 POST /api/generate-from-document。
func (h *GenerationHandler) GenerateFromDocumentHandler(w http.ResponseWriter, r *http.Request) {
	h.handleFile(w, r, gentypes.DocumentModality)
}

// GenerateFromAudioHandler 处理 POST /api/generate-from-audio。
func (h *GenerationHandler) GenerateFromAudioHandler(w http.ResponseWriter, r *http.Request) {
	h.handleFile(w, r, gentypes.AudioModality)
}

func (h *GenerationHandler) handleFile(w http.ResponseWriter, r *http.Request, modality gentypes.Modality) {
	profile, ok := gentypes.ProfileFor(modality)
	if !ok {
		writeJSONError(w, gentypes.NewNotFoundError("Endpoint not found"))
		return
	}
	ctx := detach(r)

	file, prompt, err := h.receiveUpload(ctx, w, r, profile)
	if err != nil {
		h.logFailure(r, err)
		writeJSONError(w, err)
		return
	}

	// 文件的所有权交给调度器，由它负责删除
	data, err := h.generationService.GenerateFromFile(ctx, modality, file, prompt)
	if err != nil {
		h.logFailure(r, err)
		writeJSONError(w, err)
		return
	}
	writeSuccess(w, data)
}

func (h *GenerationHandler) logFailure(r *http.Request, err error) {
	requestID, _ := middleware.GetRequestIDFromContext(r.Context())
	h.logger.Info("请求失败",
		zap.String("path", r.URL.Path),
		zap.String("requestId", requestID),
		zap.Stringer("kind", gentypes.KindOf(err)),
		zap.Error(err))
}

// readPrompt 从 JSON 或表单请求体中读取 prompt。
func readPrompt(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	defer r.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return r.FormValue(promptField), nil
	}

	var req PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", gentypes.NewUploadTooLargeError("Request body too large")
		}
		return "", gentypes.NewValidationError("Invalid request body")
	}
	return req.Prompt, nil
}

// detach 返回不会随客户端断开而取消的上下文：模型调用会执行完毕，暂存文件仍由调度器清理。
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
