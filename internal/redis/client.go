package redis

import (
	"context"
	"fmt"

	"gemini-proxy/internal/config"
	"gemini-proxy/internal/gentypes"
	"gemini-proxy/internal/storage"

	"github.com/redis/go-redis/v9"
)

// Connect 创建 Redis 客户端并确认连接可用。
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("无法连接到 Redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// OpenSessionStore 按 SESSION.BACKEND 选择会话存储。
// 返回的 closer 释放底层连接，内存存储的 closer 什么也不做。
func OpenSessionStore(ctx context.Context, cfg config.Config) (gentypes.SessionStore, func() error, error) {
	switch cfg.Session.Backend {
	case "redis":
		client, err := Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisSessionStore(client, cfg.Session.TTL, cfg.Session.MaxMessages), client.Close, nil
	case "", "memory":
		return storage.NewMemorySessionStore(cfg.Session.TTL, cfg.Session.MaxMessages), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("不支持的会话存储: %s", cfg.Session.Backend)
	}
}
