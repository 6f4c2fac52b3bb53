package service

import (
	"errors"
	"time"

	"chatapp/internal/models"
	"chatapp/internal/ws"

	"gorm.io/gorm"
)

// ChannelService 封装频道相关的业务逻辑。
// 所有状态变更先落库再广播：HTTP 响应只用于回传校验错误，
// 各客户端统一以广播事件作为插入路径。
type ChannelService struct {
	db  *gorm.DB
	hub Broadcaster
}

func NewChannelService(db *gorm.DB, hub Broadcaster) *ChannelService {
	return &ChannelService{db: db, hub: hub}
}

// ChannelDTO 是对外输出的频道数据，成员按加入顺序排列。
type ChannelDTO struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Create 创建新频道，创建者是首个成员，提交后广播 channelCreated。
func (s *ChannelService) Create(name, description, creator string) (*ChannelDTO, error) {
	var ch models.Channel
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Channel{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrChannelNameTaken
		}
		ch = models.Channel{Name: name, Description: description}
		if err := tx.Create(&ch).Error; err != nil {
			return err
		}
		return tx.Create(&models.ChannelMember{ChannelID: ch.ID, Username: creator}).Error
	})
	if err != nil {
		// 并发创建同名频道依赖唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrChannelNameTaken
		}
		return nil, err
	}
	dto := &ChannelDTO{ID: ch.ID, Name: ch.Name, Description: ch.Description, Members: []string{creator}, CreatedAt: ch.CreatedAt}
	s.hub.Broadcast(ws.ChannelCreated(ws.Channel(*dto)))
	return dto, nil
}

// List 按创建顺序返回全部频道，附带各频道的成员列表。
func (s *ChannelService) List() ([]ChannelDTO, error) {
	var chs []models.Channel
	if err := s.db.Order("id asc").Find(&chs).Error; err != nil {
		return nil, err
	}
	var members []models.ChannelMember
	if err := s.db.Order("id asc").Find(&members).Error; err != nil {
		return nil, err
	}
	byChannel := make(map[uint][]string, len(chs))
	for _, m := range members {
		byChannel[m.ChannelID] = append(byChannel[m.ChannelID], m.Username)
	}
	out := make([]ChannelDTO, 0, len(chs))
	for _, ch := range chs {
		ms := byChannel[ch.ID]
		if ms == nil {
			ms = []string{}
		}
		out = append(out, ChannelDTO{ID: ch.ID, Name: ch.Name, Description: ch.Description, Members: ms, CreatedAt: ch.CreatedAt})
	}
	return out, nil
}

// Delete 删除频道并级联清理成员与消息，提交后广播 channelDeleted。
func (s *ChannelService) Delete(id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ch models.Channel
		if err := tx.First(&ch, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChannelNotFound
			}
			return err
		}
		if err := tx.Where("channel_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("channel_id = ?", id).Delete(&models.ChannelMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Channel{}, id).Error
	})
	if err != nil {
		return err
	}
	s.hub.Broadcast(ws.ChannelDeleted(id))
	return nil
}
