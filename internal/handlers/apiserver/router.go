package apiserver

import (
	"net/http"

	"gemini-proxy/internal/config"
	"gemini-proxy/internal/gentypes"
	"gemini-proxy/internal/middleware"
	"gemini-proxy/internal/services"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RouterDeps 汇总了构建 API 路由所需的依赖。
type RouterDeps struct {
	Config     config.Config
	Generation services.GenerationService
	Chat       services.ChatService
	Files      gentypes.FileStore
	Logger     *zap.Logger
}

// NewRouter 注册所有接口，并按顺序套上请求ID、panic 恢复、CORS 和访问日志中间件。
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	genHandler := NewGenerationHandler(deps.Generation, deps.Files, deps.Config.Upload, logger)
	chatHandler := NewChatHandler(deps.Chat, logger)
	healthHandler := NewHealthHandler(deps.Config.AppVersion)

	r := mux.NewRouter()
	r.Handle("/", healthHandler).Methods(http.MethodGet)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/generate-text", genHandler.GenerateTextHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/generate-from-image", genHandler.GenerateFromImageHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/generate-from-document", genHandler.GenerateFromDocumentHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/generate-from-audio", genHandler.GenerateFromAudioHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/generate-image", genHandler.GenerateImageHandler).Methods(http.MethodPost)

	if deps.Chat != nil {
		apiRouter.HandleFunc("/chat", chatHandler.SendMessageHandler).Methods(http.MethodPost)
		apiRouter.HandleFunc("/chat/{sessionID}", chatHandler.GetHistoryHandler).Methods(http.MethodGet)
		apiRouter.HandleFunc("/chat/{sessionID}", chatHandler.ResetSessionHandler).Methods(http.MethodDelete)
	}

	// 未匹配的路径和不支持的方法统一返回 404
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, gentypes.NewNotFoundError("Endpoint not found"))
	})
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notFound
	apiRouter.NotFoundHandler = notFound
	apiRouter.MethodNotAllowedHandler = notFound

	cors := deps.Config.APIServer.CORS
	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cors.AllowedOrigins),
		handlers.AllowedMethods(cors.AllowedMethods),
		handlers.AllowedHeaders(cors.AllowedHeaders),
		handlers.ExposedHeaders(cors.ExposedHeaders),
		handlers.MaxAge(cors.MaxAge),
	}
	if cors.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}

	var h http.Handler = handlers.CORS(corsOptions...)(r)
	h = middleware.Recover(logger)(h)
	h = middleware.RequestID(h)

	accessLog := zap.NewStdLog(logger.Named("access")).Writer()
	return handlers.CombinedLoggingHandler(accessLog, h)
}
