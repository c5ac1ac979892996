package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"

	"gemini-proxy/internal/gentypes"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// contextKey 是用于在 context.Context 中存储值的自定义类型，以避免键冲突。
type contextKey string

// RequestIDKey 是用于在上下文中存储请求ID的键。
const RequestIDKey contextKey = "requestID"

// RequestIDHeader 是请求ID使用的 HTTP 头。
const RequestIDHeader = "X-Request-ID"

// RequestID 为每个请求分配ID。客户端已经携带的ID会被沿用。
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestIDFromContext 从上下文中获取请求ID。
// 如果请求ID不存在或类型不正确，返回空字符串和false。
func GetRequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(RequestIDKey).(string)
	return id, ok
}

// Recover 捕获处理器中的 panic，返回统一的 500 响应，不把堆栈暴露给客户端。
func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				requestID, _ := GetRequestIDFromContext(r.Context())
				logger.Error("处理请求时发生 panic",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("requestId", requestID),
					zap.ByteString("stack", debug.Stack()))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(gentypes.Envelope{Success: false, Error: "Internal server error"})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
