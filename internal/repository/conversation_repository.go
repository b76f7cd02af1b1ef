package repository

import (
	"context"
	"time"

	"github.com/plume-sante/community-backend/internal/model"
	"gorm.io/gorm"
)

type ConversationRepository interface {
	Create(ctx context.Context, cv *model.Conversation) error
	FindByID(ctx context.Context, id uint64) (*model.Conversation, error)
	// FindDirectBetween returns the newest non-group conversation that has a
	// and b as members and exactly two members in total, or
	// gorm.ErrRecordNotFound.
	FindDirectBetween(ctx context.Context, a, b uint64) (*model.Conversation, error)
	// FindByDirectKey returns whichever conversation currently holds the
	// pair key, regardless of its member count.
	FindByDirectKey(ctx context.Context, key string) (*model.Conversation, error)
	SetLastMessageAt(ctx context.Context, id uint64, at *time.Time) error
	SetTitle(ctx context.Context, id uint64, title string) error
	// ClearDirectKey releases the unique member-pair key so a later
	// find-or-create can open a fresh direct conversation for the pair.
	ClearDirectKey(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error
	WithTx(tx *gorm.DB) ConversationRepository
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) WithTx(tx *gorm.DB) ConversationRepository {
	return &conversationRepository{db: tx}
}

func (r *conversationRepository) Create(ctx context.Context, cv *model.Conversation) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(cv).Error
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint64) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).First(&cv, id).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) FindByDirectKey(ctx context.Context, key string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).Where("direct_key = ?", key).First(&cv).Error; err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) FindDirectBetween(ctx context.Context, a, b uint64) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	// Historical data may hold direct conversations with stray extra member
	// rows, so candidates are filtered to exactly two members.
	var cv model.Conversation
	err := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Select("conversations.*").
		Joins("JOIN conversation_members cm ON cm.conversation_id = conversations.id").
		Where("conversations.is_group = ?", false).
		Where("cm.person_id IN ?", []uint64{a, b}).
		Group("conversations.id").
		Having("COUNT(DISTINCT cm.person_id) = 2").
		Having("(SELECT COUNT(*) FROM conversation_members m2 WHERE m2.conversation_id = conversations.id) = 2").
		Order("conversations.created_at DESC").
		Order("conversations.id DESC").
		First(&cv).Error
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) SetLastMessageAt(ctx context.Context, id uint64, at *time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("last_message_at", at).Error
}

func (r *conversationRepository) SetTitle(ctx context.Context, id uint64, title string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("title", title).Error
}

func (r *conversationRepository) ClearDirectKey(ctx context.Context, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Update("direct_key", nil).Error
}

func (r *conversationRepository) Delete(ctx context.Context, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Delete(&model.Conversation{}, id).Error
}
