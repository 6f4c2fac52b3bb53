package ws

import "time"

// 广播事件类型，与客户端约定的 JSON 协议一一对应。
const (
	EventChannelCreated = "channelCreated"
	EventChannelDeleted = "channelDeleted"
	EventNewMessage     = "newMessage"
)

// Channel 是事件载荷中的频道数据，字段与 REST 响应保持一致。
type Channel struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Message 是事件载荷中的消息数据。
type Message struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event 是服务端推送给全部客户端的状态变更通知。
type Event struct {
	Type      string   `json:"type"`
	Channel   *Channel `json:"channel,omitempty"`
	ChannelID uint     `json:"channelId,omitempty"`
	Message   *Message `json:"message,omitempty"`
}

func ChannelCreated(ch Channel) Event {
	return Event{Type: EventChannelCreated, Channel: &ch}
}

func ChannelDeleted(channelID uint) Event {
	return Event{Type: EventChannelDeleted, ChannelID: channelID}
}

func NewMessage(channelID uint, msg Message) Event {
	return Event{Type: EventNewMessage, ChannelID: channelID, Message: &msg}
}
