package apiserver

import (
	"encoding/json"
	"net/http"

	"gemini-proxy/internal/gentypes"
)

// writeJSONResponse 是一个辅助函数，用于发送 JSON 响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		// 头部已经发送，编码失败时无法再改写状态码
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeSuccess 发送成功响应。
func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSONResponse(w, http.StatusOK, gentypes.OK(data))
}

// writeJSONError 把错误映射为状态码和统一的失败响应。
func writeJSONError(w http.ResponseWriter, err error) {
	writeJSONResponse(w, gentypes.StatusOf(err), gentypes.Fail(err))
}
