package ws

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"chatapp/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Hub 维护全部存活的 WebSocket 连接，向每个连接推送事件，
// 并通过周期性 ping 探活剔除死连接。
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	pong       chan *Client
	broadcast  chan []byte
	done       chan struct{}
	interval   time.Duration
	online     int32
}

func NewHub(pingInterval time.Duration) *Hub {
	if pingInterval <= 0 {
		pingInterval = 10 * time.Second
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		pong:       make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		interval:   pingInterval,
	}
}

// Broadcast 把事件序列化后投递给全部连接；尽力而为，不确认不重试。
func (h *Hub) Broadcast(evt Event) {
	b, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("type", evt.Type).Msg("marshal broadcast event")
		return
	}
	metrics.WsBroadcastsTotal.WithLabelValues(evt.Type).Inc()
	select {
	case h.broadcast <- b:
	case <-h.done:
	}
}

// Online 返回当前存活连接数。
func (h *Hub) Online() int { return int(atomic.LoadInt32(&h.online)) }

// add 把连接挂入 hub；hub 已停止时返回 false，调用方自行关闭连接。
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Shutdown 关闭全部连接并结束 Run 循环。
func (h *Hub) Shutdown() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Run 是 hub 的事件循环：clients 集合和 alive 标记只在这里被修改，
// 因此不需要额外加锁。每个 tick 做一次探活清扫：上个周期没回
// pong 的连接直接终止，其余标记为待确认并发出新的 ping。
func (h *Hub) Run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			c.alive = true
			atomic.StoreInt32(&h.online, int32(len(h.clients)))
			metrics.WsConnections.Inc()
			log.Info().Str("username", c.username).Int("online", len(h.clients)).Msg("ws client connected")
		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
				log.Info().Str("username", c.username).Int("online", len(h.clients)).Msg("ws client disconnected")
			}
		case c := <-h.pong:
			if h.clients[c] {
				c.alive = true
			}
		case b := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- b:
				default:
					// 发送缓冲打满视为死连接
					h.drop(c)
				}
			}
		case <-ticker.C:
			for c := range h.clients {
				if !c.alive {
					metrics.WsReapedTotal.Inc()
					h.drop(c)
					log.Warn().Str("username", c.username).Msg("ws client reaped by liveness sweep")
					continue
				}
				c.alive = false
				c.ping()
			}
		case <-h.done:
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	c.close()
	atomic.StoreInt32(&h.online, int32(len(h.clients)))
	metrics.WsConnections.Dec()
}
