package repository

import (
	"context"
	"time"

	"github.com/plume-sante/community-backend/internal/model"
	"gorm.io/gorm"
)

type MemberRepository interface {
	Create(ctx context.Context, m *model.ConversationMember) error
	Find(ctx context.Context, convID, personID uint64) (*model.ConversationMember, error)
	ListByConversation(ctx context.Context, convID uint64) ([]model.ConversationMember, error)
	ListByPerson(ctx context.Context, personID uint64) ([]model.ConversationMember, error)
	Count(ctx context.Context, convID uint64) (int64, error)
	Delete(ctx context.Context, convID, personID uint64) error
	DeleteByConversation(ctx context.Context, convID uint64) error
	SetReadCursor(ctx context.Context, convID, personID, lastReadMessageID uint64, at time.Time) error
	SetMuted(ctx context.Context, convID, personID uint64, muted bool) error
	WithTx(tx *gorm.DB) MemberRepository
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) WithTx(tx *gorm.DB) MemberRepository {
	return &memberRepository{db: tx}
}

func (r *memberRepository) Create(ctx context.Context, m *model.ConversationMember) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *memberRepository) Find(ctx context.Context, convID, personID uint64) (*model.ConversationMember, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var m model.ConversationMember
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND person_id = ?", convID, personID).
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepository) ListByConversation(ctx context.Context, convID uint64) ([]model.ConversationMember, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.ConversationMember
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("joined_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *memberRepository) ListByPerson(ctx context.Context, personID uint64) ([]model.ConversationMember, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.ConversationMember
	if err := r.db.WithContext(ctx).
		Where("person_id = ?", personID).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *memberRepository) Count(ctx context.Context, convID uint64) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.ConversationMember{}).
		Where("conversation_id = ?", convID).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *memberRepository) Delete(ctx context.Context, convID, personID uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Where("conversation_id = ? AND person_id = ?", convID, personID).
		Delete(&model.ConversationMember{}).Error
}

func (r *memberRepository) DeleteByConversation(ctx context.Context, convID uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Delete(&model.ConversationMember{}).Error
}

func (r *memberRepository) SetReadCursor(ctx context.Context, convID, personID, lastReadMessageID uint64, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND person_id = ?", convID, personID).
		Updates(map[string]interface{}{
			"last_read_message_id": lastReadMessageID,
			"last_read_at":         at,
		}).Error
}

func (r *memberRepository) SetMuted(ctx context.Context, convID, personID uint64, muted bool) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND person_id = ?", convID, personID).
		Update("is_muted", muted).Error
}
