package repository

import (
	"context"
	"errors"
	"time"

	"github.com/plume-sante/community-backend/internal/model"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id uint64) (*model.Message, error)
	// ListByConversation returns messages in canonical order (ascending id).
	ListByConversation(ctx context.Context, convID uint64) ([]model.Message, error)
	// LastInConversation returns the newest message or nil when the
	// conversation has none.
	LastInConversation(ctx context.Context, convID uint64) (*model.Message, error)
	ListActiveBySender(ctx context.Context, convID, senderID uint64) ([]model.Message, error)
	Save(ctx context.Context, msg *model.Message) error
	CountUnread(ctx context.Context, convID, viewerID, afterID uint64) (int64, error)
	// MaxActiveCreatedAt returns max(created_at) over non-deleted messages,
	// or nil when none remain.
	MaxActiveCreatedAt(ctx context.Context, convID uint64) (*time.Time, error)
	MarkAllDeleted(ctx context.Context, convID uint64, placeholder string, at time.Time) error
	DeleteByConversation(ctx context.Context, convID uint64) error
	WithTx(tx *gorm.DB) MessageRepository
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) WithTx(tx *gorm.DB) MessageRepository {
	return &messageRepository{db: tx}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepository) FindByID(ctx context.Context, id uint64) (*model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msg model.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, convID uint64) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) LastInConversation(ctx context.Context, convID uint64) (*model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msg model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("id DESC").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListActiveBySender(ctx context.Context, convID, senderID uint64) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND sender_id = ? AND status <> ?", convID, senderID, model.MessageStatusDeleted).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) Save(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Save(msg).Error
}

func (r *messageRepository) CountUnread(ctx context.Context, convID, viewerID, afterID uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND id > ? AND sender_id <> ? AND status <> ?",
			convID, afterID, viewerID, model.MessageStatusDeleted).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *messageRepository) MaxActiveCreatedAt(ctx context.Context, convID uint64) (*time.Time, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msg model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND status <> ?", convID, model.MessageStatusDeleted).
		Order("created_at DESC").
		Order("id DESC").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	at := msg.CreatedAt
	return &at, nil
}

func (r *messageRepository) MarkAllDeleted(ctx context.Context, convID uint64, placeholder string, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND status <> ?", convID, model.MessageStatusDeleted).
		Updates(map[string]interface{}{
			"status":     model.MessageStatusDeleted,
			"deleted_at": at,
			"body":       placeholder,
		}).Error
}

func (r *messageRepository) DeleteByConversation(ctx context.Context, convID uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Delete(&model.Message{}).Error
}
