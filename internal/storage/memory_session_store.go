package storage

import (
	"context"
	"sync"
	"time"

	"gemini-proxy/internal/gentypes"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MaxMemorySessions 是内存存储最多保留的会话数，超出时淘汰最久未写入的会话。
const MaxMemorySessions = 10000

// MemorySessionStore 是进程内的对话历史存储，适合单实例部署和测试。
// 过期会话由 expirable.LRU 在后台清理，不依赖再次读取。
type MemorySessionStore struct {
	// 保证 Append 的读改写是原子的
	mu          sync.Mutex
	sessions    *expirable.LRU[string, []gentypes.ChatMessage]
	maxMessages int
}

// NewMemorySessionStore 创建一个新的 MemorySessionStore。ttl 为 0 表示永不过期。
func NewMemorySessionStore(ttl time.Duration, maxMessages int) *MemorySessionStore {
	return &MemorySessionStore{
		sessions:    expirable.NewLRU[string, []gentypes.ChatMessage](MaxMemorySessions, nil, ttl),
		maxMessages: maxMessages,
	}
}

func (s *MemorySessionStore) Load(ctx context.Context, sessionID string) ([]gentypes.ChatMessage, error) {
	messages, ok := s.sessions.Get(sessionID)
	if !ok {
		return []gentypes.ChatMessage{}, nil
	}
	out := make([]gentypes.ChatMessage, len(messages))
	copy(out, messages)
	return out, nil
}

// Append 追加消息并刷新过期时间，只保留最新的 maxMessages 条。
func (s *MemorySessionStore) Append(ctx context.Context, sessionID string, msgs ...gentypes.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, _ := s.sessions.Get(sessionID)
	messages := make([]gentypes.ChatMessage, 0, len(existing)+len(msgs))
	messages = append(messages, existing...)
	messages = append(messages, msgs...)
	if s.maxMessages > 0 && len(messages) > s.maxMessages {
		messages = messages[len(messages)-s.maxMessages:]
	}
	s.sessions.Add(sessionID, messages)
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.sessions.Remove(sessionID)
	return nil
}

// Len 返回当前保留的会话数。
func (s *MemorySessionStore) Len() int {
	return s.sessions.Len()
}

var _ gentypes.SessionStore = (*MemorySessionStore)(nil)
