package apiserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"gemini-proxy/internal/gentypes"
	"gemini-proxy/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ChatHandler 封装了多轮对话相关的 HTTP 处理器方法。
type ChatHandler struct {
	chatService services.ChatService
	logger      *zap.Logger
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(chatService services.ChatService, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{chatService: chatService, logger: logger}
}

// ChatRequest 是 POST /api/chat 的请求体。
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Prompt    string `json:"prompt"`
}

// SendMessageHandler 处理 POST /api/chat。
func (h *ChatHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	defer r.Body.Close()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, gentypes.NewValidationError("Invalid request body"))
		return
	}

	data, err := h.chatService.Chat(detach(r), req.SessionID, req.Prompt)
	if err != nil {
		h.logger.Info("对话请求失败", zap.Stringer("kind", gentypes.KindOf(err)), zap.Error(err))
		writeJSONError(w, err)
		return
	}
	writeSuccess(w, data)
}

// GetHistoryHandler 处理 GET /api/chat/{sessionID}。
func (h *ChatHandler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	session, err := h.chatService.History(r.Context(), sessionID)
	if err != nil {
		writeJSONError(w, err)
		return
	}
	writeSuccess(w, session)
}

// ResetSessionHandler 处理 DELETE /api/chat/{sessionID}。
func (h *ChatHandler) ResetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]
	if err := h.chatService.Reset(r.Context(), sessionID); err != nil {
		writeJSONError(w, err)
		return
	}
	writeSuccess(w, map[string]string{"id": sessionID})
}
