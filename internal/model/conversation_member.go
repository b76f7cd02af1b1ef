package model

import "time"

type MemberRole string

const (
	RoleMember MemberRole = "member"
	RoleAdmin  MemberRole = "admin"
)

type ConversationMember struct {
	ConversationID uint64     `gorm:"column:conversation_id;primaryKey;autoIncrement:false" json:"conversationId"`
	PersonID       uint64     `gorm:"column:person_id;primaryKey;autoIncrement:false" json:"personId"`
	Role           MemberRole `gorm:"size:16;not null;default:member" json:"role"`
	// LastReadMessageID is the read cursor: the highest message id this
	// member has acknowledged. 0 means nothing read yet.
	LastReadMessageID uint64     `gorm:"column:last_read_message_id;not null;default:0" json:"lastReadMessageId"`
	LastReadAt        *time.Time `gorm:"column:last_read_at" json:"lastReadAt,omitempty"`
	IsMuted           bool       `gorm:"column:is_muted;not null;default:false" json:"isMuted"`
	JoinedAt          time.Time  `gorm:"column:joined_at;autoCreateTime" json:"joinedAt"`
}

func (ConversationMember) TableName() string {
	return "conversation_members"
}
