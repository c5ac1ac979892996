package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gemini-proxy/internal/gentypes"

	"github.com/redis/go-redis/v9"
)

// redisSessionStore 是 gentypes.SessionStore 接口的 Redis 实现。
// 每个会话是一个 list，元素为 JSON 编码的 ChatMessage。
type redisSessionStore struct {
	client      *redis.Client
	ttl         time.Duration
	maxMessages int
}

// NewRedisSessionStore 创建一个新的 redisSessionStore 实例。ttl 为 0 表示不过期。
func NewRedisSessionStore(client *redis.Client, ttl time.Duration, maxMessages int) gentypes.SessionStore {
	return &redisSessionStore{client: client, ttl: ttl, maxMessages: maxMessages}
}

const sessionKeyPrefix = "chat:session:"

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Load 读取会话的全部历史。key 不存在时 LRANGE 返回空列表。
func (r *redisSessionStore) Load(ctx context.Context, sessionID string) ([]gentypes.ChatMessage, error) {
	raw, err := r.client.LRange(ctx, sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("从 Redis 读取会话 %s 失败: %w", sessionID, err)
	}
	messages := make([]gentypes.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var m gentypes.ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("解析会话 %s 的消息失败: %w", sessionID, err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// Append 在一个事务中追加消息、裁剪长度并刷新过期时间。
func (r *redisSessionStore) Append(ctx context.Context, sessionID string, msgs ...gentypes.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("序列化会话消息失败: %w", err)
		}
		values = append(values, b)
	}

	key := sessionKey(sessionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if r.maxMessages > 0 {
			pipe.LTrim(ctx, key, int64(-r.maxMessages), -1)
		}
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("写入 Redis 会话 %s 失败: %w", sessionID, err)
	}
	return nil
}

// Delete 删除会话。key 不存在时 DEL 返回 0，不视为错误。
func (r *redisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("删除 Redis 会话 %s 失败: %w", sessionID, err)
	}
	return nil
}
