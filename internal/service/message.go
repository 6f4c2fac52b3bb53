package service

import (
	"errors"
	"strings"
	"time"

	"chatapp/internal/models"
	"chatapp/internal/ws"

	"gorm.io/gorm"
)

// MessageService 封装消息相关的业务逻辑。
type MessageService struct {
	db  *gorm.DB
	hub Broadcaster
}

func NewMessageService(db *gorm.DB, hub Broadcaster) *MessageService {
	return &MessageService{db: db, hub: hub}
}

// MessageDTO 是对外输出的消息数据。
type MessageDTO struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListByChannel 按创建时间升序返回频道内全部消息。
func (s *MessageService) ListByChannel(channelID uint) ([]MessageDTO, error) {
	var count int64
	if err := s.db.Model(&models.Channel{}).Where("id = ?", channelID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrChannelNotFound
	}
	var msgs []models.Message
	if err := s.db.Where("channel_id = ?", channelID).Order("id asc").Find(&msgs).Error; err != nil {
		return nil, err
	}
	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageDTO{ID: m.ID, Content: m.Content, Sender: m.Sender, CreatedAt: m.CreatedAt})
	}
	return out, nil
}

// Create 追加一条消息，提交后广播 newMessage。
// 频道存在性检查和插入放在同一个事务里，避免频道被并发删除后
// 留下孤儿消息，这种竞态下发送必须失败。
func (s *MessageService) Create(channelID uint, sender, content string) (*MessageDTO, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	var msg models.Message
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ch models.Channel
		if err := tx.First(&ch, channelID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChannelNotFound
			}
			return err
		}
		msg = models.Message{ChannelID: channelID, Sender: sender, Content: content}
		return tx.Create(&msg).Error
	})
	if err != nil {
		return nil, err
	}
	dto := &MessageDTO{ID: msg.ID, Content: msg.Content, Sender: msg.Sender, CreatedAt: msg.CreatedAt}
	s.hub.Broadcast(ws.NewMessage(channelID, ws.Message(*dto)))
	return dto, nil
}
