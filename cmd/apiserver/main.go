package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gemini-proxy/internal/config"
	"gemini-proxy/internal/handlers/apiserver"
	"gemini-proxy/internal/logging"
	"gemini-proxy/internal/provider"
	appRedis "gemini-proxy/internal/redis"
	"gemini-proxy/internal/services"
	"gemini-proxy/internal/storage"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	// 2. 初始化日志
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	defer logger.Sync()
	logger.Info("API 服务器配置加载成功", zap.String("version", cfg.AppVersion))

	ctx := context.Background()

	// 3. 初始化模型客户端
	p, err := provider.New(ctx, cfg.Gemini, logger.Named("provider"))
	if err != nil {
		logger.Fatal("无法初始化模型客户端", zap.Error(err))
	}
	defer p.Close()
	logger.Info("模型客户端初始化成功", zap.String("provider", cfg.Gemini.Provider), zap.String("model", cfg.Gemini.Model))

	// 4. 初始化上传暂存目录
	files, err := storage.NewLocalFileStore(cfg.Upload, logger.Named("uploads"))
	if err != nil {
		logger.Fatal("无法初始化上传目录", zap.Error(err))
	}
	logger.Info("上传目录就绪", zap.String("dir", files.Dir()), zap.Int64("maxMB", cfg.Upload.MaxFileSizeMB))

	// 5. 初始化会话存储
	sessions, closeSessions, err := appRedis.OpenSessionStore(ctx, cfg)
	if err != nil {
		logger.Fatal("无法初始化会话存储", zap.Error(err))
	}
	defer closeSessions()
	logger.Info("会话存储初始化成功", zap.String("backend", cfg.Session.Backend))

	// 6. 初始化 Services
	generationService := services.NewGenerationService(p, files, logger.Named("generation"))
	chatService := services.NewChatService(p, sessions, logger.Named("chat"))

	// 7. 设置 HTTP 路由
	router := apiserver.NewRouter(apiserver.RouterDeps{
		Config:     cfg,
		Generation: generationService,
		Chat:       chatService,
		Files:      files,
		Logger:     logger,
	})

	// 8. 启动 HTTP 服务器并实现优雅关闭
	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  cfg.APIServer.ReadTimeout,
		WriteTimeout: cfg.APIServer.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("API 服务器启动", zap.String("addr", serverAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("API 服务器启动失败", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("收到关闭信号，正在关闭 API 服务器...")

	// 等待进行中的模型调用结束，它们的暂存文件由调度器删除
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("API 服务器强制关闭", zap.Error(err))
		return
	}
	logger.Info("API 服务器已成功关闭")
}
