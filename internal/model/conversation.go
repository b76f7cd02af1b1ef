package model

import (
	"fmt"
	"time"
)

type Conversation struct {
	ID      uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Title   *string `gorm:"size:255" json:"title,omitempty"`
	IsGroup bool    `gorm:"column:is_group;not null;default:false" json:"isGroup"`
	AdminID *uint64 `gorm:"column:admin_id" json:"adminId,omitempty"`
	// DirectKey is the canonical "<min>:<max>" member-pair key for direct
	// conversations, nil for groups. The unique index turns a concurrent
	// duplicate create into a detectable insert conflict.
	DirectKey     *string    `gorm:"column:direct_key;size:64;uniqueIndex" json:"-"`
	LastMessageAt *time.Time `gorm:"column:last_message_at;index" json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// DirectPairKey builds the canonical direct-conversation key for two people,
// independent of argument order.
func DirectPairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
