package gentypes

import (
	"context"
	"time"
)

// ChatRole 是对话中的角色，取值与提供方保持一致。
type ChatRole string

const (
	UserRole  ChatRole = "user"
	ModelRole ChatRole = "model"
)

// ChatMessage 是对话历史中的一条记录。
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession 是一个会话及其全部历史。
type ChatSession struct {
	ID       string        `json:"id"`
	Messages []ChatMessage `json:"messages"`
}

// SessionStore 定义了对话历史的存储接口。
type SessionStore interface {
	// Load 返回会话历史，会话不存在时返回空切片而不是错误。
	Load(ctx context.Context, sessionID string) ([]ChatMessage, error)
	// Append 追加消息并刷新过期时间，只保留最近 maxMessages 条。
	Append(ctx context.Context, sessionID string, msgs ...ChatMessage) error
	// Delete 删除会话，会话不存在时不报错。
	Delete(ctx context.Context, sessionID string) error
}
