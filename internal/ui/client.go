package ui

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendQueueSize = 16
)

// ErrClosed 连接已关闭
var ErrClosed = errors.New("connection closed")

// ErrSendQueueFull 发送队列已满
var ErrSendQueueFull = errors.New("send queue full")

// Client 管理台 WebSocket 客户端，每条命令一帧，每帧回复一段输出
type Client struct {
	ServerURL string
	Token     string

	conn    *websocket.Conn
	send    chan string
	receive chan string
	done    chan struct{}

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	err       error
}

// NewClient 创建客户端
func NewClient(serverURL, token string) *Client {
	return &Client{
		ServerURL: serverURL,
		Token:     token,
		send:      make(chan string, sendQueueSize),
		receive:   make(chan string, 64),
		done:      make(chan struct{}),
	}
}

// Connect 连接管理台
func (c *Client) Connect() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	header := http.Header{}
	if c.Token != "" {
		header.Set("Authorization", "Bearer "+c.Token)
	}

	conn, resp, err := dialer.Dial(c.ServerURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return errors.New("令牌无效")
		}
		return err
	}
	c.conn = conn

	go c.readPump()
	go c.writePump()
	return nil
}

// readPump 读取回复，连接结束时关闭 receive
func (c *Client) readPump() {
	defer close(c.receive)

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		select {
		case c.receive <- string(data):
		case <-c.done:
			return
		}
	}
}

// writePump 发送命令并定期 ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(cmd)); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send 排队发送一条命令
func (c *Client) Send(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.conn == nil {
		return ErrClosed
	}
	select {
	case c.send <- cmd:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Receive 阻塞等待下一段输出；连接结束后返回关闭原因
func (c *Client) Receive() (string, error) {
	text, ok := <-c.receive
	if ok {
		return text, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	return "", ErrClosed
}

// Close 发送关闭帧并断开连接
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
		if c.conn == nil {
			return
		}
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = c.conn.Close()
	})
	return err
}
