package websocket

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

var errHubStopped = errors.New("websocket hub stopped")

// Hub 维护当前所有的流式对话连接。
// 连接的注册和注销都在 Run 的单个 goroutine 中串行处理。
type Hub struct {
	// 已注册的连接，以连接ID为键
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	// Run 退出后关闭，之后的注册请求直接失败
	stopped chan struct{}

	count  atomic.Int64
	logger *zap.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		logger:     logger,
	}
}

// Register 把连接加入 Hub。Hub 已停止时返回错误。
func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.stopped:
		return errHubStopped
	}
}

// Unregister 从 Hub 中移除连接并关闭它的发送队列。
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
		c.close()
	}
}

// Count 返回当前连接数。
func (h *Hub) Count() int {
	return int(h.count.Load())
}

// Run starts the hub and blocks until ctx is cancelled.
// 退出时关闭所有仍在线的连接。
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket Hub 已启动")
	defer close(h.stopped)

	for {
		select {
		case client := <-h.register:
			h.clients[client.ID] = client
			h.count.Store(int64(len(h.clients)))
			h.logger.Info("客户端已注册", zap.String("client", client.ID), zap.Int("connections", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				h.count.Store(int64(len(h.clients)))
				h.logger.Info("客户端已注销", zap.String("client", client.ID), zap.Int("connections", len(h.clients)))
			}
			client.close()

		case <-ctx.Done():
			h.logger.Info("WebSocket Hub 正在关闭", zap.Int("connections", len(h.clients)))
			for id, client := range h.clients {
				client.close()
				delete(h.clients, id)
			}
			h.count.Store(0)
			return
		}
	}
}
