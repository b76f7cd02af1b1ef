package model

import "time"

type NotificationKind string

const (
	NotificationNewMessage   NotificationKind = "new_message"
	NotificationMemberJoined NotificationKind = "member_joined"
	NotificationMemberLeft   NotificationKind = "member_left"
)

type Notification struct {
	ID             uint64           `gorm:"primaryKey;autoIncrement"`
	RecipientID    uint64           `gorm:"column:recipient_id;index;not null"`
	Kind           NotificationKind `gorm:"column:kind;size:64;not null"`
	ConversationID *uint64          `gorm:"column:conversation_id;index"`
	MessageID      *uint64          `gorm:"column:message_id;index"`
	ReadAt         *time.Time       `gorm:"column:read_at"`
	CreatedAt      time.Time        `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
