package repository

import (
	"context"

	"github.com/plume-sante/community-backend/internal/model"
	"gorm.io/gorm"
)

type ReactionRepository interface {
	Create(ctx context.Context, rc *model.MessageReaction) error
	// Delete reports whether a row was actually removed.
	Delete(ctx context.Context, messageID, personID uint64, emoji string) (bool, error)
	ListByMessage(ctx context.Context, messageID uint64) ([]model.MessageReaction, error)
	DeleteByConversation(ctx context.Context, convID uint64) error
	WithTx(tx *gorm.DB) ReactionRepository
}

type reactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) WithTx(tx *gorm.DB) ReactionRepository {
	return &reactionRepository{db: tx}
}

func (r *reactionRepository) Create(ctx context.Context, rc *model.MessageReaction) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(rc).Error
}

func (r *reactionRepository) Delete(ctx context.Context, messageID, personID uint64, emoji string) (bool, error) {
	if r.db == nil {
		return false, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Where("message_id = ? AND person_id = ? AND emoji = ?", messageID, personID, emoji).
		Delete(&model.MessageReaction{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *reactionRepository) ListByMessage(ctx context.Context, messageID uint64) ([]model.MessageReaction, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.MessageReaction
	if err := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *reactionRepository) DeleteByConversation(ctx context.Context, convID uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Where("message_id IN (?)",
			r.db.Model(&model.Message{}).Select("id").Where("conversation_id = ?", convID)).
		Delete(&model.MessageReaction{}).Error
}
