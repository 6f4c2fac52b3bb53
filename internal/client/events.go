package client

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// 与服务端广播协议对应的事件类型。
const (
	EventChannelCreated = "channelCreated"
	EventChannelDeleted = "channelDeleted"
	EventNewMessage     = "newMessage"
)

// Event 是服务端推送的一条状态变更通知。
type Event struct {
	Type      string   `json:"type"`
	Channel   *Channel `json:"channel"`
	ChannelID uint     `json:"channelId"`
	Message   *Message `json:"message"`
}

// Listen 在连接上循环读取事件并应用到 Store，直到连接断开或 ctx
// 取消。帧解析失败只记日志并丢弃，不中断事件流。
func (s *Store) Listen(ctx context.Context, conn *websocket.Conn) error {
	// 读循环退出时同步结束看门 goroutine，服务端先断开也不残留
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stopped:
		}
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			log.Warn().Err(err).Msg("drop malformed event frame")
			continue
		}
		s.Apply(evt)
	}
}
