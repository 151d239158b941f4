package admin

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	maxCommandSize = 4096
	writeWait      = 10 * time.Second
)

// Handler websocket 管理入口：每个文本帧是一条命令，回复为渲染后的输出
type Handler struct {
	console       *Console
	token         string
	originChecker *OriginChecker
	upgrader      websocket.Upgrader
}

// NewHandler 创建 websocket 管理入口
func NewHandler(console *Console, token string, allowedOrigins []string) *Handler {
	h := &Handler{
		console:       console,
		token:         token,
		originChecker: NewOriginChecker(allowedOrigins),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.originChecker.Check,
	}
	return h
}

// ServeHTTP 校验令牌后升级连接
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := GetClientIP(r)

	if !tokenMatches(r, h.token) {
		log.Printf("🚫 管理台令牌错误 (IP: %s)", clientIP)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("管理台 WebSocket 升级失败 (IP: %s): %v", clientIP, err)
		return
	}
	defer func() { _ = conn.Close() }()

	session := uuid.NewString()
	log.Printf("🛠️ 管理会话 %s 已连接 (IP: %s)", session, clientIP)
	defer log.Printf("🛠️ 管理会话 %s 已断开", session)

	conn.SetReadLimit(maxCommandSize)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if !errors.As(err, &ce) {
				log.Printf("⚠️ 管理会话 %s 读取失败: %v", session, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		quit := h.console.Apply(string(data), func(out string) error {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			return conn.WriteMessage(websocket.TextMessage, []byte(out))
		})
		if quit {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shut down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

// NewHTTPServer 创建挂载 /admin 与 /health 的 HTTP 服务器
func NewHTTPServer(addr string, h *Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/admin", h)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
