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
	"gemini-proxy/internal/handlers/chatserver"
	"gemini-proxy/internal/logging"
	"gemini-proxy/internal/provider"
	appRedis "gemini-proxy/internal/redis"
	"gemini-proxy/internal/services"
	"gemini-proxy/internal/websocket"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	defer logger.Sync()
	logger.Info("Chat 服务器配置加载成功")

	// 2. 初始化模型客户端和会话存储
	p, err := provider.New(context.Background(), cfg.Gemini, logger.Named("provider"))
	if err != nil {
		logger.Fatal("无法初始化模型客户端", zap.Error(err))
	}
	defer p.Close()

	sessions, closeSessions, err := appRedis.OpenSessionStore(context.Background(), cfg)
	if err != nil {
		logger.Fatal("无法初始化会话存储", zap.Error(err))
	}
	defer closeSessions()

	chatService := services.NewChatService(p, sessions, logger.Named("chat"))

	// 3. 初始化 WebSocket Hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub(logger.Named("hub"))
	go hub.Run(hubCtx)

	// 4. 配置 HTTP 服务器路由
	wsHandler := chatserver.NewWebSocketHandler(hub, chatService, cfg, logger.Named("ws"))
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	// WebSocket 连接是长连接，不设置 WriteTimeout
	httpServer := &http.Server{
		Addr:           serverAddr,
		Handler:        chatserver.NewServeMux(wsHandler),
		ReadTimeout:    cfg.Server.ReadTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Info("Chat 服务器启动", zap.String("addr", serverAddr), zap.String("path", cfg.Server.WebSocketPath))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Chat 服务器启动失败", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Chat 服务器准备关闭...")

	// Shutdown 不会等待已劫持的 WebSocket 连接，由 Hub 主动关闭它们
	stopHub()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		logger.Error("Chat 服务器关闭失败", zap.Error(err))
		return
	}
	logger.Info("Chat 服务器已优雅关闭")
}
