package model

import "time"

type MessageStatus string

const (
	MessageStatusNormal  MessageStatus = "normal"
	MessageStatusEdited  MessageStatus = "edited"
	MessageStatusDeleted MessageStatus = "deleted"
)

// Message ids are the canonical conversation ordering; created_at is kept for
// display only because wall clocks can collide.
type Message struct {
	ID               uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID   uint64        `gorm:"column:conversation_id;index" json:"conversationId"`
	SenderID         uint64        `gorm:"column:sender_id;index" json:"senderId"`
	Body             string        `gorm:"type:text;not null" json:"body"`
	ReplyToMessageID *uint64       `gorm:"column:reply_to_message_id" json:"replyToMessageId,omitempty"`
	HasAttachments   bool          `gorm:"column:has_attachments;not null;default:false" json:"hasAttachments"`
	Status           MessageStatus `gorm:"size:16;not null;default:normal" json:"status"`
	CreatedAt        time.Time     `gorm:"autoCreateTime" json:"createdAt"`
	EditedAt         *time.Time    `gorm:"column:edited_at" json:"editedAt,omitempty"`
	DeletedAt        *time.Time    `gorm:"column:deleted_at" json:"deletedAt,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}
