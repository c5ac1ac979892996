package apiserver

import "net/http"

// HealthResponse 是根路径返回的服务信息。
type HealthResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

const healthMessage = "Gemini Multimodal API is running!"

// HealthHandler 返回服务状态和可用接口列表。
type HealthHandler struct {
	version string
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, HealthResponse{
		Success: true,
		Message: healthMessage,
		Version: h.version,
		Endpoints: map[string]string{
			"text":     "POST /api/generate-text",
			"image":    "POST /api/generate-from-image",
			"document": "POST /api/generate-from-document",
			"audio":    "POST /api/generate-from-audio",
			"imageGen": "POST /api/generate-image",
			"chat":     "POST /api/chat",
		},
	})
}
