package models

import "time"

type User struct {
	ID           uint    `gorm:"primaryKey"`
	Username     string  `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string  `gorm:"not null"`
	SessionToken *string `gorm:"uniqueIndex;size:64"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Channel struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;size:128;not null"`
	Description string `gorm:"size:512"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ChannelMember 的自增 ID 顺序即成员加入顺序。
type ChannelMember struct {
	ID        uint   `gorm:"primaryKey"`
	ChannelID uint   `gorm:"index:idx_member_channel_id;not null"`
	Username  string `gorm:"size:64;not null"`
	CreatedAt time.Time
}

type Message struct {
	ID        uint   `gorm:"primaryKey"`
	ChannelID uint   `gorm:"index:idx_msg_channel_id;not null"`
	Sender    string `gorm:"size:64;not null"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

type ContactForm struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"size:128;not null"`
	Name      string `gorm:"size:128;not null"`
	Message   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}
