package model

import "time"

type MessageReaction struct {
	MessageID uint64    `gorm:"column:message_id;primaryKey;autoIncrement:false" json:"messageId"`
	PersonID  uint64    `gorm:"column:person_id;primaryKey;autoIncrement:false" json:"personId"`
	Emoji     string    `gorm:"size:32;primaryKey" json:"emoji"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (MessageReaction) TableName() string {
	return "message_reactions"
}
