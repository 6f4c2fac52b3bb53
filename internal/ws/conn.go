package ws

import (
	"net/http"
	"time"

	"chatapp/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

const writeWait = 10 * time.Second

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	username string
	alive    bool // 只在 hub 的 Run 循环中读写
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve 校验会话 cookie 后把连接升级为 WebSocket 并挂入 hub。
func Serve(h *Hub, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.UserByToken(db, auth.TokenFromRequest(c.Request))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), username: user.Username}
		// 升级和停服可能竞争，hub 停止后直接断开
		if !h.add(client) {
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump()
	}
}

// readPump 只负责驱动控制帧处理：协议没有定义入站数据帧，
// pong 回执通过 channel 交回 hub 循环记账。
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(1 << 20) // 1MB
	c.conn.SetReadDeadline(time.Now().Add(3 * c.hub.interval))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(3 * c.hub.interval))
		select {
		case c.hub.pong <- c:
		case <-c.hub.done:
		}
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer func() { _ = c.conn.Close() }()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ping 与写 pump 并发安全：gorilla 允许 WriteControl 与其他写并发。
func (c *Client) ping() {
	if c.conn == nil {
		return
	}
	_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *Client) close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
