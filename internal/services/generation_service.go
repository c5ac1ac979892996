package services

import (
	"context"
	"fmt"
	"strings"

	"gemini-proxy/internal/gentypes"
	"gemini-proxy/internal/media"
	"gemini-proxy/internal/provider"

	"go.uber.org/zap"
)

// FallbackResponse 是模型返回空文本时使用的回复。
const FallbackResponse = "I couldn't generate a response."

// GenerationService 定义了单轮生成请求的调度接口。
type GenerationService interface {
	// GenerateText 处理纯文本提示词。
	GenerateText(ctx context.Context, prompt string) (*gentypes.GenerationData, error)
	// GenerateFromFile 处理图片、文档、音频请求。
	// 调用后 file 的所有权转移给服务，无论成功失败都会被删除。
	GenerateFromFile(ctx context.Context, modality gentypes.Modality, file *gentypes.UploadedFile, prompt string) (*gentypes.GenerationData, error)
	// GenerateImage 调用图片模型生成图片，结果以 data URL 返回。
	GenerateImage(ctx context.Context, prompt string) (*gentypes.GenerationData, error)
}

// generationService 是 GenerationService 的实现。
type generationService struct {
	provider provider.Provider
	files    gentypes.FileStore
	logger   *zap.Logger
	sniff    func(path string) (string, error)
}

// NewGenerationService 创建一个新的 GenerationService 实例。
func NewGenerationService(p provider.Provider, files gentypes.FileStore, logger *zap.Logger) GenerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &generationService{
		provider: p,
		files:    files,
		logger:   logger,
		sniff:    media.SniffMIME,
	}
}

func (s *generationService) GenerateText(ctx context.Context, prompt string) (*gentypes.GenerationData, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, gentypes.NewValidationError("Prompt is required")
	}

	completion, err := s.provider.GenerateContent(ctx, prompt, nil)
	if err != nil {
		s.logger.Error("文本生成失败", zap.Error(err))
		return nil, gentypes.NewProviderError("Failed to generate text response", err)
	}

	return &gentypes.GenerationData{
		Prompt:   prompt,
		Response: textOrFallback(completion),
	}, nil
}

func (s *generationService) GenerateFromFile(ctx context.Context, modality gentypes.Modality, file *gentypes.UploadedFile, prompt string) (*gentypes.GenerationData, error) {
	profile, ok := gentypes.ProfileFor(modality)
	if !ok {
		s.files.Delete(ctx, file)
		return nil, gentypes.NewValidationError(fmt.Sprintf("Unsupported modality: %s", modality))
	}
	if file == nil {
		return nil, gentypes.NewValidationError(profile.MissingFileMessage)
	}
	// 从这里开始，任何返回路径都会删除暂存文件
	defer s.files.Delete(ctx, file)

	// 1. Validate: 传输层已按声明类型检查过一次，这里再核对一次声明类型和文件内容
	mimeType := media.DeclaredOrResolved(file.DeclaredMIMEType, file.OriginalName)
	if !profile.Allows(mimeType) {
		return nil, gentypes.NewUnsupportedMediaError(profile.InvalidTypeMessage())
	}
	sniffed, err := s.sniff(file.Path)
	if err != nil {
		return nil, gentypes.NewIOError("Failed to read uploaded file", err)
	}
	if !media.ContentMatches(modality, mimeType, sniffed) {
		s.logger.Warn("文件内容与声明类型不符",
			zap.String("modality", string(modality)),
			zap.String("declared", mimeType),
			zap.String("detected", sniffed),
			zap.String("file", file.OriginalName))
		return nil, gentypes.NewUnsupportedMediaError(profile.InvalidTypeMessage())
	}

	// 2. Assemble
	file.DeclaredMIMEType = mimeType
	payload, err := media.BuildInlinePayload(file)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = profile.DefaultPrompt
	}

	// 3. Invoke
	completion, err := s.provider.GenerateContent(ctx, prompt, &payload)
	if err != nil {
		s.logger.Error("文件生成失败",
			zap.String("modality", string(modality)),
			zap.String("file", file.OriginalName),
			zap.Error(err))
		return nil, gentypes.NewProviderError(profile.FailureMessage, err)
	}

	// 4. Finalize: 文件由 defer 删除
	return &gentypes.GenerationData{
		Prompt:   prompt,
		FileName: file.OriginalName,
		MimeType: mimeType,
		Response: textOrFallback(completion),
	}, nil
}

func (s *generationService) GenerateImage(ctx context.Context, prompt string) (*gentypes.GenerationData, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, gentypes.NewValidationError("Prompt is required")
	}

	completion, err := s.provider.GenerateImage(ctx, prompt)
	if err != nil {
		s.logger.Error("图片生成失败", zap.Error(err))
		return nil, gentypes.NewProviderError("Failed to generate image", err)
	}
	image, ok := completion.FirstInline()
	if !ok {
		return nil, gentypes.NewProviderError("Failed to generate image", errNoImageData)
	}

	text := completion.Text
	if strings.TrimSpace(text) == "" {
		text = fmt.Sprintf("Here is the image I generated for: %q", prompt)
	}
	return &gentypes.GenerationData{
		Prompt:   prompt,
		MimeType: image.MIMEType,
		Response: text,
		ImageURL: image.DataURL(),
	}, nil
}

func textOrFallback(c *provider.Completion) string {
	if c == nil || strings.TrimSpace(c.Text) == "" {
		return FallbackResponse
	}
	return c.Text
}
