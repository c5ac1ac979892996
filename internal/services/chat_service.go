package services

import (
	"context"
	"strings"
	"time"

	"gemini-proxy/internal/gentypes"
	"gemini-proxy/internal/provider"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxSessionIDLen 限制客户端传入的会话 ID 长度。
const maxSessionIDLen = 128

// ChatService 定义了多轮对话的接口。历史保存在 SessionStore 中。
type ChatService interface {
	// Chat 发送一条消息。sessionID 为空时创建新会话。
	Chat(ctx context.Context, sessionID, prompt string) (*gentypes.GenerationData, error)
	// StreamChat 与 Chat 相同，但逐段回调模型输出。
	StreamChat(ctx context.Context, sessionID, prompt string, onChunk provider.ChunkFunc) (*gentypes.GenerationData, error)
	// History 返回会话的全部历史。
	History(ctx context.Context, sessionID string) (*gentypes.ChatSession, error)
	// Reset 清空会话。
	Reset(ctx context.Context, sessionID string) error
}

// chatService 是 ChatService 的实现。
type chatService struct {
	provider provider.Provider
	sessions gentypes.SessionStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(p provider.Provider, sessions gentypes.SessionStore, logger *zap.Logger) ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &chatService{provider: p, sessions: sessions, logger: logger, now: time.Now}
}

func (s *chatService) Chat(ctx context.Context, sessionID, prompt string) (*gentypes.GenerationData, error) {
	return s.send(ctx, sessionID, prompt, func(history []gentypes.ChatMessage) (*provider.Completion, error) {
		return s.provider.Chat(ctx, history, prompt)
	})
}

func (s *chatService) StreamChat(ctx context.Context, sessionID, prompt string, onChunk provider.ChunkFunc) (*gentypes.GenerationData, error) {
	return s.send(ctx, sessionID, prompt, func(history []gentypes.ChatMessage) (*provider.Completion, error) {
		return s.provider.ChatStream(ctx, history, prompt, onChunk)
	})
}

func (s *chatService) send(ctx context.Context, sessionID, prompt string, invoke func([]gentypes.ChatMessage) (*provider.Completion, error)) (*gentypes.GenerationData, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, gentypes.NewValidationError("Prompt is required")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	history, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, gentypes.NewIOError("Failed to load chat history", err)
	}

	asked := s.now()
	completion, err := invoke(history)
	if err != nil {
		s.logger.Error("对话生成失败", zap.String("session", sessionID), zap.Error(err))
		return nil, gentypes.NewProviderError("Failed to generate chat response", err)
	}
	response := textOrFallback(completion)

	// 历史写入失败不影响本次回复
	if err := s.sessions.Append(ctx, sessionID,
		gentypes.ChatMessage{Role: gentypes.UserRole, Text: prompt, Timestamp: asked},
		gentypes.ChatMessage{Role: gentypes.ModelRole, Text: response, Timestamp: s.now()},
	); err != nil {
		s.logger.Warn("保存对话历史失败", zap.String("session", sessionID), zap.Error(err))
	}

	return &gentypes.GenerationData{
		SessionID: sessionID,
		Prompt:    prompt,
		Response:  response,
	}, nil
}

func (s *chatService) History(ctx context.Context, sessionID string) (*gentypes.ChatSession, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}
	messages, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, gentypes.NewIOError("Failed to load chat history", err)
	}
	return &gentypes.ChatSession{ID: sessionID, Messages: messages}, nil
}

func (s *chatService) Reset(ctx context.Context, sessionID string) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return gentypes.NewIOError("Failed to reset chat session", err)
	}
	return nil
}

// validateSessionID 只接受字母、数字、'-' 和 '_'，避免把任意内容拼进存储的 key。
func validateSessionID(id string) error {
	if id == "" || len(id) > maxSessionIDLen {
		return gentypes.NewValidationError("Invalid session id")
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return gentypes.NewValidationError("Invalid session id")
		}
	}
	return nil
}
