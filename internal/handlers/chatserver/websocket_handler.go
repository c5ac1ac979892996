package chatserver

import (
	"encoding/json"
	"net/http"

	"gemini-proxy/internal/config"
	"gemini-proxy/internal/services"
	ws "gemini-proxy/internal/websocket"

	"go.uber.org/zap"
)

// WebSocketHandler 负责处理流式对话的 WebSocket 连接请求。
type WebSocketHandler struct {
	hub         *ws.Hub
	chatService services.ChatService
	cfg         config.Config // 用于获取 WebSocket 配置
	logger      *zap.Logger
}

// NewWebSocketHandler 创建一个新的 WebSocketHandler 实例。
func NewWebSocketHandler(hub *ws.Hub, chatService services.ChatService, cfg config.Config, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		hub:         hub,
		chatService: chatService,
		cfg:         cfg,
		logger:      logger,
	}
}

// ServeWS 将 HTTP 连接升级为 WebSocket 连接，并为该连接创建一个新的客户端。
// 对话是公开的，不做认证。
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws.ServeWs(h.hub, h.chatService, w, r, h.cfg.WebSocket, h.logger)
}

// HealthHandler 返回服务状态和当前连接数。
func (h *WebSocketHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success":     true,
		"version":     h.cfg.AppVersion,
		"connections": h.hub.Count(),
	})
}

// NewServeMux 注册 WebSocket 路径和健康检查。
func NewServeMux(h *WebSocketHandler) *http.ServeMux {
	path := h.cfg.Server.WebSocketPath
	if path == "" {
		path = "/ws/chat"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, h.ServeWS)
	mux.HandleFunc("/health", h.HealthHandler)
	return mux
}
