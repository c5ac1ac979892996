package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-proxy/internal/config"
	"gemini-proxy/internal/gentypes"
	"gemini-proxy/internal/storage"
)

func TestOpenSessionStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Config{
		Session: config.SessionConfig{Backend: "redis", TTL: time.Hour, MaxMessages: 10},
		Redis:   config.RedisConfig{Addr: mr.Addr()},
	}
	store, closer, err := OpenSessionStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closer()

	require.NoError(t, store.Append(context.Background(), "s1", gentypes.ChatMessage{Role: gentypes.UserRole, Text: "hi"}))
	assert.True(t, mr.Exists(sessionKey("s1")))
}

func TestOpenSessionStoreMemory(t *testing.T) {
	store, closer, err := OpenSessionStore(context.Background(), config.Config{
		Session: config.SessionConfig{Backend: "memory", TTL: time.Hour, MaxMessages: 10},
	})
	require.NoError(t, err)
	assert.NoError(t, closer())
	assert.IsType(t, &storage.MemorySessionStore{}, store)
}

func TestConnectFailsWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Connect(ctx, config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}
