package client

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// 本地操作错误，发起请求前即可判定。
var (
	ErrNoChannelSelected = errors.New("no channel selected")
	ErrEmptyMessage      = errors.New("message content is empty")
	ErrEmptyName         = errors.New("channel name is required")
	ErrUnknownChannel    = errors.New("unknown channel")
)

// API 是 Store 依赖的服务端操作集合，测试中以假实现注入。
type API interface {
	FetchChannels(ctx context.Context) ([]Channel, error)
	CreateChannel(ctx context.Context, name, description string) (*Channel, error)
	DeleteChannel(ctx context.Context, id uint) error
	FetchMessages(ctx context.Context, channelID uint) ([]Message, error)
	SendMessage(ctx context.Context, channelID uint, content string) (*Message, error)
}

// Store 是客户端侧唯一的状态缓存：REST 拉取的基线、用户操作、
// 实时事件在这里汇合。写操作不做乐观插入：状态只在收到对应的
// 广播回声时变更，因此所有客户端（包括发起者）走同一条插入路径。
//
// 全部字段由同一把锁保护，事件应用例程每次都读取字段的当前值，
// 不在订阅时捕获快照，长连接存续期间不会基于过期状态做删改。
type Store struct {
	mu            sync.Mutex
	api           API
	channels      []Channel
	messages      map[uint][]Message
	fetched       map[uint]bool
	currentChat   uint // 0 表示未选中
	pendingSelect uint

	// OnChange 在状态变更后被调用（不持锁），供 UI 刷新。
	OnChange func()
}

func NewStore(api API) *Store {
	return &Store{
		api:      api,
		messages: make(map[uint][]Message),
		fetched:  make(map[uint]bool),
	}
}

// Channels 返回频道列表的副本，顺序与服务端创建顺序一致。
func (s *Store) Channels() []Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// CurrentChat 返回当前选中的频道 id，未选中为 0。
func (s *Store) CurrentChat() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentChat
}

// Messages 返回指定频道已缓存消息的副本。
func (s *Store) Messages(channelID uint) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[channelID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// LoadChannels 拉取频道列表作为基线。失败时不动现有状态。
func (s *Store) LoadChannels(ctx context.Context) error {
	chs, err := s.api.FetchChannels(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	seen := make(map[uint]bool, len(chs))
	s.channels = s.channels[:0]
	for _, ch := range chs {
		if seen[ch.ID] {
			continue
		}
		seen[ch.ID] = true
		s.channels = append(s.channels, ch)
	}
	// currentChat 必须指向仍然存在的频道
	if s.currentChat != 0 && !seen[s.currentChat] {
		s.currentChat = s.firstChannelID()
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// SelectChannel 切换当前频道，历史未缓存时顺带拉取。
// 拉取结果返回时若选中频道已经变了，直接丢弃，避免过期响应
// 覆盖新频道的状态。
func (s *Store) SelectChannel(ctx context.Context, id uint) error {
	s.mu.Lock()
	if !s.hasChannel(id) {
		s.mu.Unlock()
		return ErrUnknownChannel
	}
	s.currentChat = id
	needFetch := !s.fetched[id]
	s.mu.Unlock()
	s.notify()

	if !needFetch {
		return nil
	}
	msgs, err := s.api.FetchMessages(ctx, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.currentChat != id || !s.hasChannel(id) {
		// 过期响应，当前选择已经移走
		s.mu.Unlock()
		return nil
	}
	s.messages[id] = mergeMessages(s.messages[id], msgs)
	s.fetched[id] = true
	s.mu.Unlock()
	s.notify()
	return nil
}

// CreateChannel 发起创建请求；本地不插入，频道在 channelCreated
// 广播到达时出现，届时自动选中（请求返回的 id 只用于预选）。
func (s *Store) CreateChannel(ctx context.Context, name, description string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	ch, err := s.api.CreateChannel(ctx, name, description)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.hasChannel(ch.ID) {
		// 广播先于响应到达，直接选中
		s.currentChat = ch.ID
		s.pendingSelect = 0
	} else {
		s.pendingSelect = ch.ID
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// DeleteChannel 发起删除请求；本地状态在 channelDeleted 广播到达时清理。
func (s *Store) DeleteChannel(ctx context.Context, id uint) error {
	return s.api.DeleteChannel(ctx, id)
}

// SendMessage 发起发送请求；消息在 newMessage 广播到达时入列。
func (s *Store) SendMessage(ctx context.Context, channelID uint, content string) error {
	if channelID == 0 {
		return ErrNoChannelSelected
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	_, err := s.api.SendMessage(ctx, channelID, content)
	return err
}

// Apply 把一条广播事件应用到本地状态。应用是幂等的：频道按
// 频道 id、消息按消息 id 去重，重复投递不产生重复条目；对已不
// 存在的频道的删除事件按预期竞态静默吸收。
func (s *Store) Apply(evt Event) {
	s.mu.Lock()
	switch evt.Type {
	case EventChannelCreated:
		if evt.Channel == nil {
			s.mu.Unlock()
			return
		}
		if !s.hasChannel(evt.Channel.ID) {
			s.channels = append(s.channels, *evt.Channel)
		}
		if s.pendingSelect == evt.Channel.ID {
			s.currentChat = evt.Channel.ID
			s.pendingSelect = 0
			// 新建频道没有历史，无需再拉取
			s.fetched[evt.Channel.ID] = true
		}
	case EventChannelDeleted:
		if !s.hasChannel(evt.ChannelID) {
			s.mu.Unlock()
			return
		}
		s.removeChannel(evt.ChannelID)
		delete(s.messages, evt.ChannelID)
		delete(s.fetched, evt.ChannelID)
		if s.pendingSelect == evt.ChannelID {
			s.pendingSelect = 0
		}
		if s.currentChat == evt.ChannelID {
			s.currentChat = s.firstChannelID()
		}
	case EventNewMessage:
		if evt.Message == nil || evt.ChannelID == 0 {
			s.mu.Unlock()
			return
		}
		s.messages[evt.ChannelID] = mergeMessages(s.messages[evt.ChannelID], []Message{*evt.Message})
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	if s.OnChange != nil {
		s.OnChange()
	}
}

// 以下辅助函数要求调用方已持有 s.mu。

func (s *Store) hasChannel(id uint) bool {
	for _, ch := range s.channels {
		if ch.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) removeChannel(id uint) {
	for i, ch := range s.channels {
		if ch.ID == id {
			s.channels = append(s.channels[:i], s.channels[i+1:]...)
			return
		}
	}
}

func (s *Store) firstChannelID() uint {
	if len(s.channels) == 0 {
		return 0
	}
	return s.channels[0].ID
}

// mergeMessages 合并两段消息：按 id 去重，按创建时间升序排列，
// id 作为并列时间戳的决胜，REST 基线和实时事件由此收敛到同一结果。
func mergeMessages(existing, incoming []Message) []Message {
	seen := make(map[uint]bool, len(existing)+len(incoming))
	out := make([]Message, 0, len(existing)+len(incoming))
	for _, m := range existing {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	for _, m := range incoming {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
