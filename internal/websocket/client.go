package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gemini-proxy/internal/config"
	"gemini-proxy/internal/gentypes"
	"gemini-proxy/internal/provider"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBufferSize = 256

	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 64 << 10
)

var errClientClosed = errors.New("websocket client closed")

// ChatStreamer 是连接处理提示词所需的对话能力，services.ChatService 满足该接口。
type ChatStreamer interface {
	StreamChat(ctx context.Context, sessionID, prompt string, onChunk provider.ChunkFunc) (*gentypes.GenerationData, error)
	Reset(ctx context.Context, sessionID string) error
}

// Client is a middleman between the websocket connection and the chat service.
type Client struct {
	ID string

	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound frames.
	send chan []byte

	// 连接关闭后关闭，写协程据此退出
	done      chan struct{}
	closeOnce sync.Once

	// 连接断开时取消，正在进行的流式调用随之结束
	ctx    context.Context
	cancel context.CancelFunc

	streamer ChatStreamer
	cfg      config.WebSocketConfig
	logger   *zap.Logger

	// 同一连接同时只处理一个提示词
	busy atomic.Bool

	mu        sync.Mutex
	sessionID string
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
	})
}

// readPump pumps frames from the websocket connection to the chat service.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.close()
		c.conn.Close()
	}()
	pongWait := seconds(c.cfg.PongWaitSeconds, defaultPongWait)
	maxMessageSize := c.cfg.MaxMessageSizeBytes
	if maxMessageSize <= 0 {
		maxMessageSize = defaultMaxMessageSize
	}
	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket 读取错误", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.sendError("", gentypes.NewValidationError("Only text frames are supported"))
			continue
		}

		var frame gentypes.StreamFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.logger.Debug("无法解析客户端消息", zap.Error(err))
			c.sendError("", gentypes.NewValidationError("Invalid message"))
			continue
		}

		switch frame.Type {
		case gentypes.PromptFrameType:
			if !c.busy.CompareAndSwap(false, true) {
				c.sendError(frame.SessionID, gentypes.NewValidationError("A prompt is already being processed"))
				continue
			}
			go c.handlePrompt(frame)

		case gentypes.ResetFrameType:
			if c.busy.Load() {
				c.sendError(frame.SessionID, gentypes.NewValidationError("A prompt is already being processed"))
				continue
			}
			c.handleReset(frame)

		default:
			c.sendError(frame.SessionID, gentypes.NewValidationError("Unknown frame type"))
		}
	}
}

func (c *Client) handlePrompt(frame gentypes.StreamFrame) {
	defer c.busy.Store(false)

	sessionID := c.resolveSession(frame.SessionID)
	data, err := c.streamer.StreamChat(c.ctx, sessionID, frame.Prompt, func(text string) error {
		return c.sendFrame(gentypes.StreamFrame{Type: gentypes.ChunkFrameType, SessionID: sessionID, Text: text})
	})
	if err != nil {
		if errors.Is(err, errClientClosed) || c.ctx.Err() != nil {
			c.logger.Debug("客户端已断开，停止流式输出")
			return
		}
		c.sendError(sessionID, err)
		return
	}
	c.rememberSession(data.SessionID)
	_ = c.sendFrame(gentypes.StreamFrame{
		Type:      gentypes.DoneFrameType,
		SessionID: data.SessionID,
		Prompt:    data.Prompt,
		Text:      data.Response,
	})
}

func (c *Client) handleReset(frame gentypes.StreamFrame) {
	sessionID := c.resolveSession(frame.SessionID)
	if err := c.streamer.Reset(c.ctx, sessionID); err != nil {
		c.sendError(sessionID, err)
		return
	}
	c.rememberSession(sessionID)
	_ = c.sendFrame(gentypes.StreamFrame{Type: gentypes.ResetFrameType, SessionID: sessionID})
}

// resolveSession 返回本次使用的会话ID：优先使用消息中携带的，否则沿用连接上一次的会话，都没有时新建。
// 消息携带的ID要等处理成功后才由 rememberSession 记为连接的会话。
func (c *Client) resolveSession(requested string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id := strings.TrimSpace(requested); id != "" {
		return id
	}
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}
	return c.sessionID
}

func (c *Client) rememberSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
}

func (c *Client) sendError(sessionID string, err error) {
	env := gentypes.Fail(err)
	_ = c.sendFrame(gentypes.StreamFrame{
		Type:      gentypes.ErrorFrameType,
		SessionID: sessionID,
		Error:     env.Error,
		Details:   env.Details,
	})
}

// sendFrame 把消息放入发送队列。队列满时等待，连接关闭后返回错误。
func (c *Client) sendFrame(frame gentypes.StreamFrame) error {
	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	select {
	case c.send <- b:
		return nil
	case <-c.done:
		return errClientClosed
	}
}

// writePump pumps frames from the send queue to the websocket connection.
func (c *Client) writePump() {
	writeWait := seconds(c.cfg.WriteWaitSeconds, defaultWriteWait)
	// ping 周期必须小于 pongWait
	ticker := time.NewTicker(seconds(c.cfg.PingPeriodSeconds, defaultPongWait*9/10))
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "connection closed"))
			return
		}
	}
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

// ServeWs 把 HTTP 请求升级为 WebSocket 连接，并为它启动读写协程。
func ServeWs(hub *Hub, streamer ChatStreamer, w http.ResponseWriter, r *http.Request, wsCfg config.WebSocketConfig, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		ID:       uuid.NewString(),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		streamer: streamer,
		cfg:      wsCfg,
	}
	client.logger = logger.With(zap.String("client", client.ID))

	if err := hub.Register(client); err != nil {
		cancel()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	client.logger.Info("客户端已连接", zap.String("remote", r.RemoteAddr))
}
